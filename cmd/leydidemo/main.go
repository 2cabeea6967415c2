//  Copyright 2023 Stealth Rocket, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command leydidemo runs one of the fiber runtime's documented end-to-end
// scenarios (S1-S6) and prints the log it produces, optionally writing a
// pprof profile of the fiber switches involved.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/stealthrocket/leydi"
	"github.com/stealthrocket/leydi/trace"
)

// program holds flags parsed into a plain struct; run() does the work and
// main() is only responsible for exit status.
type program struct {
	scenario    string
	profilePath string
	maxFibers   int
}

func main() {
	p := &program{}
	pflag.StringVarP(&p.scenario, "scenario", "s", "S1", "scenario to run (S1..S6)")
	pflag.StringVar(&p.profilePath, "profile", "", "write a pprof profile of fiber switches to this path")
	pflag.IntVar(&p.maxFibers, "max-fibers", leydi.DefaultMaxFibers, "worker fiber pool size")
	pflag.Parse()

	if err := p.run(); err != nil {
		fmt.Fprintln(os.Stderr, "leydidemo:", err)
		os.Exit(1)
	}
}

func (p *program) run() error {
	scenario, ok := scenarios[p.scenario]
	if !ok {
		return fmt.Errorf("unknown scenario %q (want one of S1..S6)", p.scenario)
	}

	opts := []leydi.RuntimeOption{leydi.WithMaxFibers(p.maxFibers)}

	var tracer *trace.Tracer
	if p.profilePath != "" {
		tracer = trace.New()
		opts = append(opts, leydi.WithTracer(tracer))
	}

	log, err := scenario(opts)
	for _, entry := range log {
		fmt.Println(entry)
	}
	if err != nil {
		return err
	}

	if tracer != nil {
		f, err := os.Create(p.profilePath)
		if err != nil {
			return fmt.Errorf("writing profile: %w", err)
		}
		defer f.Close()
		if err := tracer.Profile().Write(f); err != nil {
			return fmt.Errorf("writing profile: %w", err)
		}
	}
	return nil
}

// scenarioFunc runs one end-to-end scenario and returns the log entries it
// produced, in order.
type scenarioFunc func(opts []leydi.RuntimeOption) ([]string, error)

var scenarios = map[string]scenarioFunc{
	"S1": scenarioS1,
	"S2": scenarioS2,
	"S3": scenarioS3,
	"S4": scenarioS4,
	"S5": scenarioS5,
	"S6": scenarioS6,
}

// scenarioS1 spawns four fibers whose bodies each append their id and
// return, expecting the log [1 2 3 4] and a final CurrentID of 0.
func scenarioS1(opts []leydi.RuntimeOption) ([]string, error) {
	r := leydi.New(opts...)
	var log []string
	for i := 0; i < 4; i++ {
		id := uint64(i + 1)
		r.Spawn(func() {
			log = append(log, fmt.Sprintf("%d", id))
		}, nil)
	}
	r.Run()
	log = append(log, fmt.Sprintf("final=%d", r.CurrentID()))
	return log, nil
}

// scenarioS2 demonstrates an explicit yield interleaving two fibers,
// expecting the log [A1 B1 A2 B2].
func scenarioS2(opts []leydi.RuntimeOption) ([]string, error) {
	r := leydi.New(opts...)
	var log []string
	r.Spawn(func() {
		log = append(log, "A1")
		leydi.YieldNext()
		log = append(log, "A2")
	}, nil)
	r.Spawn(func() {
		log = append(log, "B1")
		leydi.YieldNext()
		log = append(log, "B2")
	}, nil)
	r.Run()
	return log, nil
}

// scenarioS3 triggers a fiber before its body ever runs: the trigger entry
// runs instead, and the body is skipped entirely.
func scenarioS3(opts []leydi.RuntimeOption) ([]string, error) {
	r := leydi.New(opts...)
	var log []string
	f := r.Spawn(
		func() { log = append(log, "body1") },
		func(fromID, eventIndex uint64) {
			log = append(log, fmt.Sprintf("trig1 from=%d", fromID))
		},
	)
	ok := leydi.Trigger(f.ID(), leydi.Event{To: f.ID(), Data: 42})
	if !ok {
		return log, errors.New("expected Trigger to succeed")
	}
	return log, nil
}

// scenarioS4 has fiber 2's body call GotoMain partway through; fibers 1 and
// 3 run to completion, fiber 2 logs only up to the GotoMain call, and every
// worker ends up AVAILABLE.
func scenarioS4(opts []leydi.RuntimeOption) ([]string, error) {
	r := leydi.New(opts...)
	var log []string
	r.Spawn(func() { log = append(log, "fiber1") }, nil)
	r.Spawn(func() {
		log = append(log, "fiber2-before")
		leydi.GotoMain()
		log = append(log, "fiber2-after (unreachable)")
	}, nil)
	r.Spawn(func() { log = append(log, "fiber3") }, nil)
	r.Run()
	return log, nil
}

// scenarioS5 spawns MaxFibers+1 bodies, expecting the final Spawn to panic
// with a PoolExhaustedError before Run is ever called.
func scenarioS5(opts []leydi.RuntimeOption) (log []string, err error) {
	r := leydi.New(opts...)
	defer func() {
		if rec := recover(); rec != nil {
			if pe, ok := rec.(leydi.PoolExhaustedError); ok {
				log = append(log, pe.Error())
				return
			}
			panic(rec)
		}
	}()
	for i := 0; i < r.MaxFibers()+1; i++ {
		r.Spawn(func() {}, nil)
	}
	return log, errors.New("expected pool exhaustion to panic")
}

// scenarioS6 triggers three fibers in turn, expecting the event indices each
// trigger entry observes to be 0, 1, 2 in that order.
func scenarioS6(opts []leydi.RuntimeOption) ([]string, error) {
	r := leydi.New(opts...)
	var log []string
	var fibers []uint64
	for i := 0; i < 3; i++ {
		f := r.Spawn(nil, func(fromID, eventIndex uint64) {
			log = append(log, fmt.Sprintf("eventIndex=%d", eventIndex))
		})
		fibers = append(fibers, f.ID())
	}

	for _, id := range fibers {
		if !leydi.Trigger(id, leydi.Event{To: id}) {
			return log, fmt.Errorf("trigger %d failed", id)
		}
	}
	return log, nil
}
