// Package tlmt sends anonymous usage events.
package tlmt

import (
	"context"
	"crypto/sha256"
	"fmt"
	"maps"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/host"
)

var (
	once       sync.Once
	identifier machineIdentifier
)

type Event struct {
	AnonymousID string
	Name        string
	Properties  map[string]any
}

// NewEvent creates an event carrying the machine fingerprint and props.
func NewEvent(name string, props map[string]any) Event {
	machine := generateMachineID()

	ev := Event{
		AnonymousID: machine.id,
		Name:        name,
		Properties:  make(map[string]any, len(machine.meta)+len(props)),
	}

	maps.Copy(ev.Properties, machine.meta)
	maps.Copy(ev.Properties, props)

	return ev
}

type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

type machineIdentifier struct {
	id   string
	meta map[string]any
}

func generateMachineID() machineIdentifier {
	once.Do(func() {
		meta := make(map[string]any)

		seed := ""

		info, err := host.Info()
		if err == nil {
			seed = info.HostID
			meta["os"] = info.OS
			meta["platform"] = info.Platform
			meta["platform_family"] = info.PlatformFamily
			meta["platform_version"] = info.PlatformVersion
		}

		if seed == "" {
			seed = uuid.New().String()
		}

		hash := sha256.New()
		hash.Write([]byte(seed))
		hash.Write([]byte(runtime.GOARCH))
		hash.Write([]byte(runtime.GOOS))
		hash.Write([]byte(runtime.Version()))

		identifier.id = fmt.Sprintf("%x", hash.Sum(nil))
		identifier.meta = meta
	})

	return identifier
}
