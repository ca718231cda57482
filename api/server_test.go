package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/pixel-aim-go/config"
	"github.com/soocke/pixel-aim-go/domain/action"
	"github.com/soocke/pixel-aim-go/domain/detect"
	"github.com/soocke/pixel-aim-go/domain/pipeline"
)

type fakePipeline struct {
	detecting, previewing bool
	startErr              error
	stops                 int
}

func (p *fakePipeline) StartDetect() (bool, error) {
	if p.startErr != nil {
		return false, p.startErr
	}
	if p.detecting {
		return false, nil
	}
	p.detecting = true
	return true, nil
}

func (p *fakePipeline) StopDetect() bool {
	p.stops++
	was := p.detecting
	p.detecting, p.previewing = false, false
	return was
}

func (p *fakePipeline) StartPreview() (bool, error) {
	if p.previewing {
		return false, nil
	}
	p.previewing = true
	return true, nil
}

func (p *fakePipeline) StopPreview() bool {
	was := p.previewing
	p.previewing = false
	return was
}

func (p *fakePipeline) Status() pipeline.Status {
	return pipeline.Status{Channel: "test", Detecting: p.detecting, Previewing: p.previewing}
}

type fakePreview struct {
	data []byte
	have bool
}

func (f fakePreview) JPEG(int) ([]byte, bool, error) { return f.data, f.have, nil }

func newTestServer(t *testing.T, deps Deps) (*httptest.Server, *config.Store) {
	t.Helper()
	if deps.Pipeline == nil {
		deps.Pipeline = &fakePipeline{}
	}
	store, err := config.OpenStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	if deps.Config == nil {
		deps.Config = store
	}
	srv := NewServer(deps, ServerOptions{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func post(t *testing.T, ts *httptest.Server, path string, body any) Envelope {
	t.Helper()
	var rd bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&rd).Encode(body))
	}
	resp, err := http.Post(ts.URL+path, "application/json", &rd)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestStartDetect_SecondCallReportsError(t *testing.T) {
	p := &fakePipeline{}
	ts, _ := newTestServer(t, Deps{Pipeline: p})

	assert.Equal(t, 0, post(t, ts, "/start_detect", nil).Error)
	env := post(t, ts, "/start_detect", nil)
	assert.Equal(t, 1, env.Error)
	assert.Contains(t, env.Msg, "already running")
}

func TestStartDetect_FailureIsReported(t *testing.T) {
	ts, _ := newTestServer(t, Deps{Pipeline: &fakePipeline{startErr: errors.New("no screen")}})
	env := post(t, ts, "/start_detect", nil)
	assert.Equal(t, 1, env.Error)
	assert.Contains(t, env.Msg, "no screen")
}

func TestStopDetect_AlwaysOK(t *testing.T) {
	p := &fakePipeline{}
	ts, _ := newTestServer(t, Deps{Pipeline: p})
	assert.Equal(t, 0, post(t, ts, "/stop_detect", nil).Error)
	assert.Equal(t, 0, post(t, ts, "/stop_detect", nil).Error)
	assert.Equal(t, 2, p.stops)
}

func TestPreview_StartTwiceThenStop(t *testing.T) {
	p := &fakePipeline{}
	ts, _ := newTestServer(t, Deps{Pipeline: p})
	assert.Equal(t, 0, post(t, ts, "/preview", nil).Error)
	assert.Equal(t, 1, post(t, ts, "/preview", nil).Error)
	assert.Equal(t, 0, post(t, ts, "/stop_preview", nil).Error)
	assert.False(t, p.previewing)
}

func TestConfigGetAndSet(t *testing.T) {
	ts, store := newTestServer(t, Deps{})

	env := post(t, ts, "/config/get", nil)
	require.Equal(t, 0, env.Error)
	m := env.Data.(map[string]any)
	assert.Equal(t, "x1", m["hotkey"])

	env = post(t, ts, "/config/set", map[string]any{"x_base_speed": 5.5, "custom": "kept"})
	require.Equal(t, 0, env.Error, env.Msg)
	m = env.Data.(map[string]any)
	assert.Equal(t, 5.5, m["x_base_speed"])
	assert.Equal(t, "kept", m["custom"])
	assert.Equal(t, 5.5, store.Read().XBaseSpeed)
}

func TestConfigSet_EmptyOrInvalidBody(t *testing.T) {
	ts, _ := newTestServer(t, Deps{})
	assert.Equal(t, 1, post(t, ts, "/config/set", nil).Error)
	assert.Equal(t, 1, post(t, ts, "/config/set", map[string]any{}).Error)

	resp, err := http.Post(ts.URL+"/config/set", "application/json", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, 1, env.Error)
}

func TestHotkeyChange(t *testing.T) {
	ts, _ := newTestServer(t, Deps{CaptureHotkey: func(context.Context) (string, error) { return "f5", nil }})
	env := post(t, ts, "/hotkey/change", nil)
	require.Equal(t, 0, env.Error)
	assert.Equal(t, map[string]any{"hotkey": "f5"}, env.Data)

	ts, _ = newTestServer(t, Deps{CaptureHotkey: func(context.Context) (string, error) { return "", action.ErrCaptureTimeout }})
	env = post(t, ts, "/hotkey/change", nil)
	assert.Equal(t, 1, env.Error)

	ts, _ = newTestServer(t, Deps{})
	assert.Equal(t, 1, post(t, ts, "/hotkey/change", nil).Error)
}

func TestModelClasses(t *testing.T) {
	var gotPath string
	ts, _ := newTestServer(t, Deps{ClassLabels: func(p string) ([]detect.Label, error) {
		gotPath = p
		return []detect.Label{{ID: 0, Name: "person"}, {ID: 1, Name: "car"}}, nil
	}})

	assert.Equal(t, 1, post(t, ts, "/model/classes", map[string]any{}).Error)

	env := post(t, ts, "/model/classes", ModelClassesRequest{ModelPath: "m.yaml"})
	require.Equal(t, 0, env.Error)
	assert.Equal(t, "m.yaml", gotPath)
	assert.Equal(t, []any{
		map[string]any{"id": 0.0, "name": "person"},
		map[string]any{"id": 1.0, "name": "car"},
	}, env.Data)
}

func TestStatus(t *testing.T) {
	ts, _ := newTestServer(t, Deps{Pipeline: &fakePipeline{detecting: true}})
	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var env struct {
		Error int             `json:"error"`
		Data  pipeline.Status `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, 0, env.Error)
	assert.True(t, env.Data.Detecting)
	assert.Equal(t, "test", env.Data.Channel)
}

func TestPreviewJPEG(t *testing.T) {
	ts, _ := newTestServer(t, Deps{Preview: fakePreview{}})
	resp, err := http.Get(ts.URL + "/preview.jpg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ts, _ = newTestServer(t, Deps{Preview: fakePreview{data: []byte{0xff, 0xd8}, have: true}})
	resp, err = http.Get(ts.URL + "/preview.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, Deps{})
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/start_detect", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
