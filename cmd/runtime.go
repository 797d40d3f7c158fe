/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/channel"
	"github.com/dosewatch/alertkit/internal/config"
	"github.com/dosewatch/alertkit/internal/kv"
	"github.com/dosewatch/alertkit/internal/ledger"
	"github.com/dosewatch/alertkit/internal/manager"
	"github.com/dosewatch/alertkit/internal/muter"
	"github.com/dosewatch/alertkit/internal/sound"
	"github.com/dosewatch/alertkit/internal/term"
)

// runtime bundles the wired subsystem for one command invocation.
type runtime struct {
	ledger   *ledger.Ledger
	state    *kv.Store
	muter    *muter.Muter
	sounds   *sound.Manager
	center   *term.Center
	modal    *channel.Modal
	notifier *channel.Notifier
	manager  *manager.Manager
}

// openRuntime wires every collaborator the way the embedding application
// would: state store, muter, both channels over their terminal-backed
// collaborators, then the manager. Due host notifications are flushed and
// persisted alerts replayed before the runtime is handed to a command.
func openRuntime() (*runtime, error) {
	ledgerPath := config.Get("ledger_path", "")
	retention := time.Duration(config.GetInt("retention_hours", 24)) * time.Hour
	led, err := ledger.Open(ledgerPath,
		ledger.WithRetention(retention),
		ledger.WithExportBatchSize(config.GetInt("export_batch_size", 500)))
	if err != nil {
		return nil, err
	}

	state, err := kv.Open(kv.DefaultPath())
	if err != nil {
		led.Close()
		return nil, err
	}
	notifications, err := kv.Open(filepath.Join(config.Get("state_dir", ""), "notifications.toml"))
	if err != nil {
		led.Close()
		return nil, err
	}

	mut := muter.New(muter.WithStore(state))
	sounds, err := sound.NewManager(config.Get("sounds_dir", ""), nil)
	if err != nil {
		led.Close()
		return nil, err
	}

	modal := channel.NewModal(term.NewPresenter(nil),
		channel.WithModalMutePolicy(mut),
		channel.WithModalSoundPlayer(term.NewPlayer(nil)))
	center := term.NewCenter(notifications, nil)
	notifier := channel.NewNotifier(center, channel.WithNotifierMutePolicy(mut))

	mgr, err := manager.New(manager.Deps{
		Ledger:   led,
		Modal:    modal,
		Notifier: notifier,
		Muter:    mut,
		Sounds:   sounds,
		State:    state,
	})
	if err != nil {
		modal.Close()
		notifier.Close()
		led.Close()
		return nil, err
	}
	modal.BindAcknowledger(func(id alert.Identifier) {
		_ = mgr.AcknowledgeAlert(id)
	})

	if _, err := center.Flush(); err != nil {
		return nil, fmt.Errorf("flush due notifications: %w", err)
	}
	if err := mgr.PlaybackAlertsFromPersistence(); err != nil {
		return nil, err
	}

	return &runtime{
		ledger:   led,
		state:    state,
		muter:    mut,
		sounds:   sounds,
		center:   center,
		modal:    modal,
		notifier: notifier,
		manager:  mgr,
	}, nil
}

func (r *runtime) Close() {
	r.manager.Close()
	r.modal.Close()
	r.notifier.Close()
	_ = r.ledger.Close()
}
