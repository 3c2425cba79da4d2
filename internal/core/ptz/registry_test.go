package ptz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	name   string
	native bool
}

func (f *stubFactory) ProtocolName() string { return f.name }
func (f *stubFactory) IsNative() bool        { return f.native }
func (f *stubFactory) Create(cfg ConnectionConfig, cap Capability) Control {
	return &stubControl{name: f.name, native: f.native}
}

type stubControl struct {
	name   string
	native bool
}

func (c *stubControl) ProtocolName() string { return c.name }
func (c *stubControl) IsNative() bool        { return c.native }
func (c *stubControl) Execute(ctx context.Context, cmd Command) (Result, error) {
	return Result{Success: true}, nil
}

func TestRegistryPrefersNativeOverFallback(t *testing.T) {
	reg := NewRegistry(&stubFactory{name: "*", native: false}, true)
	reg.RegisterNative(&stubFactory{name: "Onvif", native: true})

	assert.True(t, reg.HasNative("onvif"))

	factory, ok := reg.GetFactory("ONVIF")
	require.True(t, ok)
	assert.True(t, factory.IsNative())
}

func TestRegistryFallsBackWhenAllowed(t *testing.T) {
	reg := NewRegistry(&stubFactory{name: "*", native: false}, true)

	factory, ok := reg.GetFactory("unknown-protocol")
	require.True(t, ok)
	assert.False(t, factory.IsNative())
}

func TestRegistryNoFallbackWhenDisallowed(t *testing.T) {
	reg := NewRegistry(&stubFactory{name: "*", native: false}, false)

	_, ok := reg.GetFactory("unknown-protocol")
	assert.False(t, ok)
}

func TestListProtocolsIncludesFallbackMarker(t *testing.T) {
	reg := NewRegistry(&stubFactory{name: "*", native: false}, true)
	reg.RegisterNative(&stubFactory{name: "onvif", native: true})

	infos := reg.ListProtocols()
	assert.Len(t, infos, 2)
}
