package capture

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/logging"
	"github.com/ashgrove/mimic/pkg/store"
)

func newTestFactory() store.Factory {
	return store.NewMemoryFactory()
}

func newTestEvaluator(factory store.Factory) *Evaluator {
	e := NewEvaluator(factory)
	e.Logger = logging.Nop()
	return e
}

func TestEvaluator_CapturesPathParam(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{
		{Name: "userID", PathParam: "id", StoreName: "sessions"},
	}
	req := Request{PathParams: map[string]string{"id": "42"}, Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, err := factory.OpenOrCreate("sessions")
	require.NoError(t, err)
	v, err := s.Load("userID")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestEvaluator_CapturesQueryAndHeader(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{
		{Name: "tab", QueryParam: "tab", StoreName: "ui"},
		{Name: "trace", Header: "X-Trace-Id", StoreName: "ui"},
	}
	req := Request{
		Query:  url.Values{"tab": []string{"billing"}},
		Header: http.Header{"X-Trace-Id": []string{"abc-123"}},
	}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("ui")
	tab, _ := s.Load("tab")
	trace, _ := s.Load("trace")
	assert.Equal(t, "billing", tab)
	assert.Equal(t, "abc-123", trace)
}

func TestEvaluator_CapturesJSONPathFromBody(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{
		{Name: "email", JSONPath: "$.user.email", StoreName: "default"},
	}
	req := Request{Body: []byte(`{"user":{"email":"a@b.com"}}`), Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("default")
	v, err := s.Load("email")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", v)
}

func TestEvaluator_CapturesExpression(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{
		{Name: "greeting", Expression: `"hello " + pathParams.name`, StoreName: "default"},
	}
	req := Request{PathParams: map[string]string{"name": "ada"}, Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("default")
	v, err := s.Load("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello ada", v)
}

func TestEvaluator_CapturesConst(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{{Name: "flag", Const: "seen", StoreName: "default"}}
	req := Request{Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("default")
	v, err := s.Load("flag")
	require.NoError(t, err)
	assert.Equal(t, "seen", v)
}

func TestEvaluator_KeyAndStoreIndirection(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{
		{
			Name:      "session",
			Const:     "active",
			Key:       &config.KeySource{PathParam: "id"},
			Store:     &config.KeySource{Const: "sessions"},
			StoreName: "default",
		},
	}
	req := Request{PathParams: map[string]string{"id": "user-7"}, Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("sessions")
	v, err := s.Load("user-7")
	require.NoError(t, err)
	assert.Equal(t, "active", v)
}

func TestEvaluator_SkipsDisabledAndWrongPhase(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	disabled := false
	captures := []config.CaptureConfig{
		{Name: "a", Const: "x", StoreName: "default", Enabled: &disabled},
		{Name: "b", Const: "y", StoreName: "default", Phase: config.PhaseResponseSent},
	}
	req := Request{Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("default")
	assert.False(t, s.HasKey("a"))
	assert.False(t, s.HasKey("b"))
}

func TestEvaluator_LastWriteWinsOnDuplicateKey(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{
		{Name: "dup", Const: "first", StoreName: "default"},
		{Name: "dup", Const: "second", StoreName: "default"},
	}
	req := Request{Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("default")
	v, err := s.Load("dup")
	require.NoError(t, err)
	assert.Equal(t, "second", v, "later captures targeting the same key win")
}

func TestEvaluator_DefaultStoreNameIsDefault(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{{Name: "k", Const: "v"}}
	req := Request{Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("default")
	assert.True(t, s.HasKey("k"))
}

func TestEvaluator_FailingCaptureIsSkippedNotFatal(t *testing.T) {
	factory := newTestFactory()
	e := newTestEvaluator(factory)

	captures := []config.CaptureConfig{
		{Name: "bad", Expression: "this is not valid expr syntax {{{", StoreName: "default"},
		{Name: "good", Const: "ok", StoreName: "default"},
	}
	req := Request{Query: url.Values{}, Header: http.Header{}}

	e.Run(captures, config.PhaseRequestReceived, req)

	s, _ := factory.OpenOrCreate("default")
	assert.False(t, s.HasKey("bad"))
	assert.True(t, s.HasKey("good"))
}
