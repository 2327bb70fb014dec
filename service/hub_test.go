package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures lifecycle calls across services in one slice
type recorder struct {
	calls []string
}

type fakeService struct {
	name      string
	deps      []string
	rec       *recorder
	initErr   error
	startErr  error
	gotArgs   []any
	stopCount int
}

func (f *fakeService) Name() string           { return f.name }
func (f *fakeService) Dependencies() []string { return f.deps }

func (f *fakeService) Init(args ...any) error {
	f.gotArgs = args
	f.rec.calls = append(f.rec.calls, "init:"+f.name)
	return f.initErr
}

func (f *fakeService) Start() error {
	f.rec.calls = append(f.rec.calls, "start:"+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	f.stopCount++
	f.rec.calls = append(f.rec.calls, "stop:"+f.name)
	return nil
}

func TestHubOrdersByDependencies(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	require.NoError(t, h.Register(&fakeService{name: "audio", deps: []string{"status"}, rec: rec}))
	require.NoError(t, h.Register(&fakeService{name: "status", rec: rec}))

	require.NoError(t, h.InitAll("arg"))
	require.NoError(t, h.StartAll())
	h.StopAll()

	assert.Equal(t, []string{
		"init:status", "init:audio",
		"start:status", "start:audio",
		"stop:audio", "stop:status",
	}, rec.calls)
	assert.Equal(t, []any{"arg"}, MustGet[*fakeService](h, "audio").gotArgs)
}

func TestHubRejectsDuplicate(t *testing.T) {
	h := NewHub()
	rec := &recorder{}
	require.NoError(t, h.Register(&fakeService{name: "a", rec: rec}))
	require.Error(t, h.Register(&fakeService{name: "a", rec: rec}))
}

func TestHubUnknownDependency(t *testing.T) {
	h := NewHub()
	require.NoError(t, h.Register(&fakeService{name: "a", deps: []string{"ghost"}, rec: &recorder{}}))
	err := h.InitAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestHubCircularDependency(t *testing.T) {
	h := NewHub()
	rec := &recorder{}
	require.NoError(t, h.Register(&fakeService{name: "a", deps: []string{"b"}, rec: rec}))
	require.NoError(t, h.Register(&fakeService{name: "b", deps: []string{"a"}, rec: rec}))
	require.ErrorIs(t, h.InitAll(), ErrCircularDependency)
}

func TestHubInitRollback(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	require.NoError(t, h.Register(&fakeService{name: "status", rec: rec}))
	require.NoError(t, h.Register(&fakeService{name: "audio", deps: []string{"status"}, rec: rec, initErr: errors.New("no device")}))

	err := h.InitAll()
	require.Error(t, err)
	assert.Equal(t, []string{"init:status", "init:audio", "stop:status"}, rec.calls)
}

func TestHubStartRollback(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	require.NoError(t, h.Register(&fakeService{name: "status", rec: rec}))
	require.NoError(t, h.Register(&fakeService{name: "audio", deps: []string{"status"}, rec: rec, startErr: errors.New("load failed")}))

	require.NoError(t, h.InitAll())
	require.Error(t, h.StartAll())
	assert.Equal(t, "stop:status", rec.calls[len(rec.calls)-1])

	// Nothing left to stop
	h.StopAll()
	assert.Equal(t, 1, MustGet[*fakeService](h, "status").stopCount)
}

func TestMustGetPanics(t *testing.T) {
	h := NewHub()
	require.NoError(t, h.Register(&fakeService{name: "a", rec: &recorder{}}))

	assert.Panics(t, func() { MustGet[*fakeService](h, "missing") })
	assert.Panics(t, func() { MustGet[*recorder](h, "a") })
	assert.Equal(t, []string{"a"}, h.Names())
}
