// Package wizard implements the setup wizard finite-state machine (spec
// §4.J): a persisted sequence of declaratively-validated steps that, on
// completion, applies its collected answers to internal/catalog atomically.
// Grounded on the teacher's step-validator pattern in its onboarding flows,
// generalized to DocBro's three wizard kinds (shelf, box, mcp).
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/metrics"
	"github.com/behemotion/docbro/internal/model"
)

// Kind is a wizard variant, keyed to a fixed step sequence.
type Kind string

const (
	KindShelf Kind = "shelf"
	KindBox   Kind = "box"
	KindMCP   Kind = "mcp"
)

// maxConcurrentSessions bounds in-flight wizard sessions (spec §4.J).
const maxConcurrentSessions = 10

// expiryAge drops sessions idle longer than this (spec §4.J).
const expiryAge = 30 * time.Minute

// Step is one declaratively-validated question in a wizard sequence.
type Step struct {
	Key      string
	Validate func(value string) error
}

// Status is the externally visible state of a wizard session.
type Status struct {
	ID          string
	Kind        Kind
	Target      string
	CurrentStep int
	TotalSteps  int
	NextKey     string
	Completed   bool
}

// Orchestrator drives wizard sessions over MetaStore, applying completed
// sessions to Catalog.
type Orchestrator struct {
	Meta    *metastore.Store
	Catalog *catalog.Catalog

	mu    sync.Mutex
	steps map[Kind][]Step
}

func New(meta *metastore.Store, cat *catalog.Catalog) *Orchestrator {
	o := &Orchestrator{Meta: meta, Catalog: cat}
	o.steps = map[Kind][]Step{
		KindShelf: {
			{Key: "name", Validate: nonEmpty},
			{Key: "description", Validate: optional},
			{Key: "default_box_type", Validate: boxTypeField},
			{Key: "auto_fill", Validate: boolField},
		},
		KindBox: {
			{Key: "name", Validate: nonEmpty},
			{Key: "type", Validate: boxTypeField},
			{Key: "shelf", Validate: optional},
			{Key: "source", Validate: optional},
		},
		KindMCP: {
			{Key: "read_only_port", Validate: portField},
			{Key: "admin_port", Validate: portField},
		},
	}
	return o
}

func nonEmpty(v string) error {
	if v == "" {
		return errs.New(errs.WizardInvalid, "value must not be empty")
	}
	return nil
}

func optional(string) error { return nil }

func boxTypeField(v string) error {
	if v == "" {
		return nil
	}
	if !model.BoxType(v).Valid() {
		return errs.New(errs.WizardInvalid, "invalid box type: "+v)
	}
	return nil
}

func boolField(v string) error {
	if v == "" {
		return nil
	}
	if _, err := strconv.ParseBool(v); err != nil {
		return errs.New(errs.WizardInvalid, "expected a boolean: "+v)
	}
	return nil
}

func portField(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1024 || n > 65535 {
		return errs.New(errs.WizardInvalid, "port must be in [1024, 65535]: "+v)
	}
	return nil
}

// Start creates a new wizard session for kind/target, failing WizardInvalid
// if 10 sessions are already in flight (spec §4.J).
func (o *Orchestrator) Start(ctx context.Context, kind Kind, target string) (Status, error) {
	steps, ok := o.steps[kind]
	if !ok {
		return Status{}, errs.New(errs.InvalidInput, "unknown wizard kind: "+string(kind))
	}
	active, err := o.Meta.CountActiveWizardSessions(ctx)
	if err != nil {
		return Status{}, err
	}
	if active >= maxConcurrentSessions {
		return Status{}, errs.New(errs.WizardInvalid, "maximum concurrent wizard sessions reached")
	}

	ws, err := o.Meta.SaveWizardSession(ctx, metastore.WizardSession{
		Kind: string(kind), Target: target, CurrentStep: 0, TotalSteps: len(steps),
		Collected: json.RawMessage("{}"),
	})
	if err != nil {
		return Status{}, err
	}
	metrics.WizardActiveSessions.Inc()
	return toStatus(ws, steps), nil
}

// SubmitStep validates value against the session's current step, stores it,
// and advances. Completing the final step applies Collected to Catalog.
func (o *Orchestrator) SubmitStep(ctx context.Context, id, value string) (Status, error) {
	ws, err := o.Meta.GetWizardSession(ctx, id)
	if err != nil {
		return Status{}, err
	}
	if ws.Completed {
		return Status{}, errs.New(errs.WizardInvalid, "wizard session already completed")
	}
	steps := o.steps[Kind(ws.Kind)]
	if ws.CurrentStep >= len(steps) {
		return Status{}, errs.New(errs.WizardInvalid, "wizard session has no remaining steps")
	}

	step := steps[ws.CurrentStep]
	if err := step.Validate(value); err != nil {
		return Status{}, err
	}

	collected := map[string]string{}
	_ = json.Unmarshal(ws.Collected, &collected)
	collected[step.Key] = value
	payload, err := json.Marshal(collected)
	if err != nil {
		return Status{}, errs.Wrap(errs.Internal, err, "wizard: marshal collected answers")
	}

	ws.Collected = payload
	ws.CurrentStep++
	if ws.CurrentStep >= len(steps) {
		ws.Completed = true
	}

	saved, err := o.Meta.SaveWizardSession(ctx, ws)
	if err != nil {
		return Status{}, err
	}

	if saved.Completed {
		if err := o.apply(ctx, saved); err != nil {
			saved.Completed = false
			saved.CurrentStep--
			_, _ = o.Meta.SaveWizardSession(ctx, saved)
			return Status{}, err
		}
		_ = o.Meta.DeleteWizardSession(ctx, saved.ID)
		metrics.WizardActiveSessions.Dec()
	}
	return toStatus(saved, steps), nil
}

// apply commits a completed session's collected answers to Catalog.
func (o *Orchestrator) apply(ctx context.Context, ws metastore.WizardSession) error {
	var collected map[string]string
	if err := json.Unmarshal(ws.Collected, &collected); err != nil {
		return errs.Wrap(errs.Internal, err, "wizard: unmarshal collected answers")
	}

	switch Kind(ws.Kind) {
	case KindShelf:
		autoFill, _ := strconv.ParseBool(collected["auto_fill"])
		_, err := o.Catalog.CreateShelf(ctx, collected["name"], catalog.ShelfOptions{
			Description:    collected["description"],
			DefaultBoxType: model.BoxType(collected["default_box_type"]),
			AutoFill:       autoFill,
		})
		return err
	case KindBox:
		boxType := model.BoxType(collected["type"])
		_, err := o.Catalog.CreateBox(ctx, collected["name"], boxType, catalog.BoxOptions{
			Shelf: collected["shelf"],
		})
		return err
	case KindMCP:
		// mcp wizard answers are applied by the caller (cmd/docbro) into
		// config, not Catalog; nothing to commit here.
		return nil
	default:
		return errs.New(errs.Internal, fmt.Sprintf("wizard: unhandled kind %q", ws.Kind))
	}
}

// Status returns a session's current state.
func (o *Orchestrator) Status(ctx context.Context, id string) (Status, error) {
	ws, err := o.Meta.GetWizardSession(ctx, id)
	if err != nil {
		return Status{}, err
	}
	return toStatus(ws, o.steps[Kind(ws.Kind)]), nil
}

// Cancel deletes an in-progress session.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	if err := o.Meta.DeleteWizardSession(ctx, id); err != nil {
		return err
	}
	metrics.WizardActiveSessions.Dec()
	return nil
}

// SweepExpired drops sessions idle longer than expiryAge, returning the
// count removed.
func (o *Orchestrator) SweepExpired(ctx context.Context) (int, error) {
	n, err := o.Meta.SweepExpiredWizardSessions(ctx, time.Now().Add(-expiryAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.WizardActiveSessions.Sub(float64(n))
	}
	return n, nil
}

func toStatus(ws metastore.WizardSession, steps []Step) Status {
	next := ""
	if ws.CurrentStep < len(steps) {
		next = steps[ws.CurrentStep].Key
	}
	return Status{
		ID: ws.ID, Kind: Kind(ws.Kind), Target: ws.Target,
		CurrentStep: ws.CurrentStep, TotalSteps: ws.TotalSteps,
		NextKey: next, Completed: ws.Completed,
	}
}
