package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"phone-sim-demo/backend/chat"
	contactmodels "phone-sim-demo/backend/contact/models"
	contactrepo "phone-sim-demo/backend/contact/repository"
	contactservice "phone-sim-demo/backend/contact/service"
	convmodels "phone-sim-demo/backend/conversation/models"
	"phone-sim-demo/backend/conversation/service"
	"phone-sim-demo/backend/conversation/store"
	loremodels "phone-sim-demo/backend/lore/models"
	loreservice "phone-sim-demo/backend/lore/service"
	apperrors "phone-sim-demo/backend/pkg/errors"
	"phone-sim-demo/backend/pkg/logger"
	"phone-sim-demo/backend/shared/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubContactRepo struct {
	mu       sync.Mutex
	contacts map[string]*contactmodels.Contact
}

var _ contactrepo.ContactRepository = (*stubContactRepo)(nil)

func (r *stubContactRepo) Create(c *contactmodels.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = c
	return nil
}
func (r *stubContactRepo) Update(c *contactmodels.Contact) error { return r.Create(c) }
func (r *stubContactRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, id)
	return nil
}
func (r *stubContactRepo) GetByID(id string) (*contactmodels.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.contacts[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, apperrors.NewNotFoundError("CONTACT_NOT_FOUND", "contact does not exist")
}
func (r *stubContactRepo) GetByName(name string) (*contactmodels.Contact, error) {
	return nil, apperrors.NewNotFoundError("CONTACT_NOT_FOUND", "contact does not exist")
}
func (r *stubContactRepo) List() ([]contactmodels.Contact, error) { return nil, nil }

type stubLoreRepo struct{}

func (stubLoreRepo) Create(*loremodels.LoreEntry) error    { return nil }
func (stubLoreRepo) Delete(string) error                   { return nil }
func (stubLoreRepo) List() ([]loremodels.LoreEntry, error) { return nil, nil }

type stubWordRepo struct{}

func (stubWordRepo) Create(*loremodels.ForbiddenWord) error    { return nil }
func (stubWordRepo) Delete(string) error                       { return nil }
func (stubWordRepo) List() ([]loremodels.ForbiddenWord, error) { return nil, nil }

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(context.Context, *chat.GenerationRequest) (string, error) {
	return g.reply, g.err
}

func newTestEngine(t *testing.T, gen chat.Generator) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewStore()
	contacts := contactservice.NewContactService(&stubContactRepo{
		contacts: map[string]*contactmodels.Contact{
			"c-1": {ID: "c-1", Name: "林夏", Persona: "活泼开朗"},
		},
	})
	lore := loreservice.NewLoreService(stubLoreRepo{}, stubWordRepo{})

	pipeline := chat.NewService(chat.ServiceOptions{
		Store:     st,
		Contacts:  contacts,
		Lore:      lore,
		Composer:  chat.NewComposer(20, 5),
		Generator: gen,
		Segmenter: chat.NewSegmenter(5),
		Scheduler: chat.NewScheduler(time.Millisecond, time.Millisecond),
		Moods:     chat.NewCacheMoodStore(),
		Metrics:   observability.NewPipelineMetrics(),
	})
	t.Cleanup(pipeline.Shutdown)

	conversations := service.NewConversationService(st, nil, logger.GetGlobal())

	engine := gin.New()
	engine.Use(apperrors.ErrorHandler())
	handler := NewConversationHandler(pipeline, conversations)

	contactGroup := engine.Group("/contacts/:contactId")
	contactGroup.GET("/messages", handler.GetMessages)
	contactGroup.POST("/messages", handler.SendMessage)
	contactGroup.DELETE("/messages", handler.DeleteMessages)
	contactGroup.PATCH("/messages/:messageId", handler.EditMessage)
	contactGroup.POST("/turns", handler.SubmitTurn)
	contactGroup.POST("/regenerate", handler.Regenerate)
	contactGroup.GET("/mood", handler.GetMood)

	return engine, st
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestSendMessageWithoutTrigger(t *testing.T) {
	engine, st := newTestEngine(t, &stubGenerator{})

	w := doJSON(t, engine, http.MethodPost, "/contacts/c-1/messages", SendMessageRequest{
		Message: convmodels.Message{Kind: convmodels.KindText, Text: "在吗"},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	msgs := st.Messages("c-1")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsSelf)
}

func TestSendMessageWithTriggerReturnsTurn(t *testing.T) {
	gen := &stubGenerator{reply: "好呀好呀 [MSG_SPLIT] 等你哦 [MSG_SPLIT] 快来吧 [MSG_SPLIT] 一起玩 [MSG_SPLIT] 拜拜啦"}
	engine, _ := newTestEngine(t, gen)

	w := doJSON(t, engine, http.MethodPost, "/contacts/c-1/messages", SendMessageRequest{
		Message: convmodels.Message{Kind: convmodels.KindText, Text: "出来玩吗"},
		Trigger: true,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Turn chat.TurnResult `json:"turn"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Turn.Fragments)
	assert.NotEmpty(t, resp.Turn.TurnID)
}

func TestSubmitTurnGatewayFailureMapsTo502(t *testing.T) {
	gen := &stubGenerator{err: apperrors.NewBadGatewayError("GATEWAY_UNAVAILABLE", "model gateway request failed")}
	engine, _ := newTestEngine(t, gen)

	w := doJSON(t, engine, http.MethodPost, "/contacts/c-1/messages", SendMessageRequest{
		Message: convmodels.Message{Kind: convmodels.KindText, Text: "在吗"},
		Trigger: true,
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "GATEWAY_UNAVAILABLE")
}

func TestSubmitTurnUnknownContactMapsTo404(t *testing.T) {
	engine, _ := newTestEngine(t, &stubGenerator{reply: "whatever"})

	w := doJSON(t, engine, http.MethodPost, "/contacts/nope/turns", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "CONTACT_NOT_FOUND")
}

func TestRegenerateWithoutUserTurnIsNoop(t *testing.T) {
	engine, st := newTestEngine(t, &stubGenerator{reply: "whatever"})
	st.Load("c-1", []convmodels.Message{
		{ID: "m-1", Kind: convmodels.KindText, Text: "你好", IsSelf: false},
	})

	w := doJSON(t, engine, http.MethodPost, "/contacts/c-1/regenerate", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, st.Messages("c-1"))
}

func TestDeleteAndEditMessages(t *testing.T) {
	engine, st := newTestEngine(t, &stubGenerator{})
	st.Load("c-1", []convmodels.Message{
		{ID: "m-1", Kind: convmodels.KindText, Text: "一", IsSelf: true},
		{ID: "m-2", Kind: convmodels.KindText, Text: "二", IsSelf: false},
	})

	w := doJSON(t, engine, http.MethodPatch, "/contacts/c-1/messages/m-1", EditMessageRequest{Text: "改过了"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "改过了", st.Messages("c-1")[0].Text)

	w = doJSON(t, engine, http.MethodDelete, "/contacts/c-1/messages", DeleteMessagesRequest{IDs: []string{"m-2"}})
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, st.Messages("c-1"), 1)

	w = doJSON(t, engine, http.MethodPatch, "/contacts/c-1/messages/missing", EditMessageRequest{Text: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMood(t *testing.T) {
	gen := &stubGenerator{reply: "[STATUS: 开心] 哈哈哈哈 [MSG_SPLIT] 太好笑了 [MSG_SPLIT] 笑死我了 [MSG_SPLIT] 你太逗了 [MSG_SPLIT] 爱你哦"}
	engine, _ := newTestEngine(t, gen)

	w := doJSON(t, engine, http.MethodPost, "/contacts/c-1/messages", SendMessageRequest{
		Message: convmodels.Message{Kind: convmodels.KindText, Text: "哈哈"},
		Trigger: true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/contacts/c-1/mood", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "开心")
}
