package db

import (
	log "github.com/sirupsen/logrus"
)

type cascadeStep struct {
	desc string
	run  func() error
}

// cascadePlan is an ordered list of collection writes spanning several files.
// Steps run in insertion order and the plan stops at the first failure; there is no
// rollback. Plans are built children first and primary entity last, so an interrupted
// plan leaves orphaned children (cleaned by Sweep) rather than dangling references.
type cascadePlan struct {
	name  string
	steps []cascadeStep
}

func newCascadePlan(name string) *cascadePlan {
	return &cascadePlan{name: name}
}

func (p *cascadePlan) add(desc string, run func() error) {
	p.steps = append(p.steps, cascadeStep{desc: desc, run: run})
}

func (p *cascadePlan) execute() error {
	for i, step := range p.steps {
		if err := step.run(); err != nil {
			log.WithFields(log.Fields{
				"plan": p.name,
				"step": i + 1,
				"of":   len(p.steps),
			}).Errorf("Cascade step '%s' failed, earlier steps stay applied: %v", step.desc, err)
			return err
		}
		log.WithField("plan", p.name).Debugf("Cascade step %d/%d done: %s", i+1, len(p.steps), step.desc)
	}
	return nil
}
