// Package modules collects the resource modules that make up the
// standard Registry.
package modules

import (
	"sync"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/modules/audio"
	"github.com/firstpersontravel/charter-sub005/modules/calls"
	"github.com/firstpersontravel/charter-sub005/modules/cues"
	"github.com/firstpersontravel/charter-sub005/modules/email"
	"github.com/firstpersontravel/charter-sub005/modules/locations"
	"github.com/firstpersontravel/charter-sub005/modules/logs"
	"github.com/firstpersontravel/charter-sub005/modules/messages"
	"github.com/firstpersontravel/charter-sub005/modules/pages"
	"github.com/firstpersontravel/charter-sub005/modules/roles"
	"github.com/firstpersontravel/charter-sub005/modules/scenes"
	"github.com/firstpersontravel/charter-sub005/modules/scripting"
	"github.com/firstpersontravel/charter-sub005/modules/times"
	"github.com/firstpersontravel/charter-sub005/modules/values"
)

// All returns the standard modules.
func All() []*core.Module {
	return []*core.Module{
		audio.Module,
		calls.Module,
		cues.Module,
		email.Module,
		locations.Module,
		logs.Module,
		messages.Module,
		pages.Module,
		roles.Module,
		scenes.Module,
		scripting.Module,
		times.Module,
		values.Module,
	}
}

var (
	once     sync.Once
	registry *core.Registry
	err      error
)

// Registry returns the Registry of All, built on first use.
func Registry() (*core.Registry, error) {
	once.Do(func() {
		registry, err = core.NewRegistry(All()...)
	})
	return registry, err
}

// MustRegistry is Registry that panics.
func MustRegistry() *core.Registry {
	r, err := Registry()
	if err != nil {
		panic(err)
	}
	return r
}
