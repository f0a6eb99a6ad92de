package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contactmodels "phone-sim-demo/backend/contact/models"
	contactservice "phone-sim-demo/backend/contact/service"
	convmodels "phone-sim-demo/backend/conversation/models"
	"phone-sim-demo/backend/conversation/store"
	loremodels "phone-sim-demo/backend/lore/models"
	loreservice "phone-sim-demo/backend/lore/service"
	apperrors "phone-sim-demo/backend/pkg/errors"
	"phone-sim-demo/backend/shared/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memContactRepo struct {
	mu       sync.Mutex
	contacts map[string]*contactmodels.Contact
}

func newMemContactRepo(contacts ...*contactmodels.Contact) *memContactRepo {
	r := &memContactRepo{contacts: make(map[string]*contactmodels.Contact)}
	for _, c := range contacts {
		r.contacts[c.ID] = c
	}
	return r
}

func (r *memContactRepo) Create(c *contactmodels.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = c
	return nil
}

func (r *memContactRepo) Update(c *contactmodels.Contact) error {
	return r.Create(c)
}

func (r *memContactRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, id)
	return nil
}

func (r *memContactRepo) GetByID(id string) (*contactmodels.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memContactRepo) GetByName(name string) (*contactmodels.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contacts {
		if c.Name == name {
			copied := *c
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memContactRepo) List() ([]contactmodels.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]contactmodels.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, *c)
	}
	return out, nil
}

type memLoreRepo struct{ entries []loremodels.LoreEntry }

func (r *memLoreRepo) Create(e *loremodels.LoreEntry) error { r.entries = append(r.entries, *e); return nil }
func (r *memLoreRepo) Delete(id string) error               { return nil }
func (r *memLoreRepo) List() ([]loremodels.LoreEntry, error) {
	return append([]loremodels.LoreEntry(nil), r.entries...), nil
}

type memWordRepo struct{ words []loremodels.ForbiddenWord }

func (r *memWordRepo) Create(w *loremodels.ForbiddenWord) error { r.words = append(r.words, *w); return nil }
func (r *memWordRepo) Delete(id string) error                   { return nil }
func (r *memWordRepo) List() ([]loremodels.ForbiddenWord, error) {
	return append([]loremodels.ForbiddenWord(nil), r.words...), nil
}

type stubGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []*GenerationRequest
}

func (g *stubGenerator) Generate(_ context.Context, req *GenerationRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	return g.reply, g.err
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type pipelineFixture struct {
	svc   *Service
	store *store.Store
	gen   *stubGenerator
}

func newPipelineFixture(t *testing.T, gen *stubGenerator) *pipelineFixture {
	t.Helper()
	st := store.NewStore()
	contacts := contactservice.NewContactService(newMemContactRepo(testContact()))
	lore := loreservice.NewLoreService(&memLoreRepo{}, &memWordRepo{})

	svc := NewService(ServiceOptions{
		Store:     st,
		Contacts:  contacts,
		Lore:      lore,
		Composer:  NewComposer(20, 5),
		Generator: gen,
		Segmenter: NewSegmenter(5),
		Scheduler: NewScheduler(time.Millisecond, time.Millisecond),
		Claims:    NewClaimScheduler(st, time.Millisecond, time.Millisecond),
		Moods:     NewCacheMoodStore(),
		Metrics:   observability.NewPipelineMetrics(),
	})
	t.Cleanup(svc.Shutdown)
	return &pipelineFixture{svc: svc, store: st, gen: gen}
}

func modelMessages(msgs []convmodels.Message) int {
	n := 0
	for _, m := range msgs {
		if !m.IsSelf {
			n++
		}
	}
	return n
}

func TestSubmitTurnDeliversFragments(t *testing.T) {
	gen := &stubGenerator{reply: "[STATUS: 开心] 在呢在呢 [MSG_SPLIT] 刚下课 [MSG_SPLIT] 好累啊 [MSG_SPLIT] 你吃饭了吗 [MSG_SPLIT] 想你了"}
	f := newPipelineFixture(t, gen)

	result, err := f.svc.SubmitTurn(context.Background(), "c-1", &convmodels.Message{
		Kind: convmodels.KindText,
		Text: "在吗？",
	})
	require.NoError(t, err)
	assert.Equal(t, "开心", result.Mood)
	assert.Equal(t, 5, result.Fragments)
	assert.NotEmpty(t, result.TurnID)

	require.Eventually(t, func() bool {
		return modelMessages(f.store.Messages("c-1")) == 5
	}, time.Second, 5*time.Millisecond)

	msgs := f.store.Messages("c-1")
	assert.True(t, msgs[0].IsSelf)
	assert.Equal(t, "在呢在呢", msgs[1].Text)

	mood, err := f.svc.Mood(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "开心", mood)
}

func TestSubmitTurnComposesFromHistory(t *testing.T) {
	gen := &stubGenerator{reply: "好的呀 [MSG_SPLIT] 没问题 [MSG_SPLIT] 等你哦 [MSG_SPLIT] 快点来 [MSG_SPLIT] 拜拜啦"}
	f := newPipelineFixture(t, gen)

	_, err := f.svc.SubmitTurn(context.Background(), "c-1", &convmodels.Message{
		Kind: convmodels.KindText,
		Text: "周末一起去拍照吧",
	})
	require.NoError(t, err)

	require.Equal(t, 1, gen.callCount())
	req := gen.calls[0]
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, "system", req.Messages[0].Role)
	// the just-sent user message is part of the composed history
	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "周末一起去拍照吧", last.Content)
}

func TestSubmitTurnMissingContact(t *testing.T) {
	gen := &stubGenerator{reply: "whatever"}
	f := newPipelineFixture(t, gen)

	_, err := f.svc.SubmitTurn(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "CONTACT_NOT_FOUND"))
	assert.Zero(t, gen.callCount())
}

func TestSubmitTurnMissingPersona(t *testing.T) {
	gen := &stubGenerator{reply: "whatever"}
	st := store.NewStore()
	contacts := contactservice.NewContactService(newMemContactRepo(&contactmodels.Contact{
		ID:   "blank",
		Name: "无名",
	}))
	svc := NewService(ServiceOptions{
		Store:     st,
		Contacts:  contacts,
		Lore:      loreservice.NewLoreService(&memLoreRepo{}, &memWordRepo{}),
		Composer:  NewComposer(20, 5),
		Generator: gen,
		Segmenter: NewSegmenter(5),
		Scheduler: NewScheduler(time.Millisecond, time.Millisecond),
		Moods:     NewCacheMoodStore(),
		Metrics:   observability.NewPipelineMetrics(),
	})
	t.Cleanup(svc.Shutdown)

	_, err := svc.SubmitTurn(context.Background(), "blank", nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, CodeMissingPersona))
	assert.Zero(t, gen.callCount())
}

func TestSubmitTurnGatewayFailure(t *testing.T) {
	gen := &stubGenerator{err: newGatewayUnavailableError("connection refused")}
	f := newPipelineFixture(t, gen)

	_, err := f.svc.SubmitTurn(context.Background(), "c-1", &convmodels.Message{
		Kind: convmodels.KindText,
		Text: "在吗",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, CodeGatewayUnavailable))

	// the user message stays even though the turn failed
	msgs := f.store.Messages("c-1")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsSelf)
}

func TestSubmitTurnSilentReply(t *testing.T) {
	gen := &stubGenerator{reply: "[STATUS: 忙碌]"}
	f := newPipelineFixture(t, gen)

	result, err := f.svc.SubmitTurn(context.Background(), "c-1", &convmodels.Message{
		Kind: convmodels.KindText,
		Text: "忙吗",
	})
	require.NoError(t, err)
	assert.Equal(t, "忙碌", result.Mood)
	assert.Zero(t, result.Fragments)

	// nothing model-authored ever lands
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, modelMessages(f.store.Messages("c-1")))
}

func TestRegenerateWithoutUserTurn(t *testing.T) {
	gen := &stubGenerator{reply: "whatever"}
	f := newPipelineFixture(t, gen)

	// log holds only model-authored messages
	f.store.Load("c-1", []convmodels.Message{
		{ID: "m-1", Kind: convmodels.KindText, Text: "你好", IsSelf: false},
	})

	result, err := f.svc.Regenerate(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Empty(t, result.TurnID)
	assert.Zero(t, gen.callCount())
	assert.Empty(t, f.store.Messages("c-1"))
}

func TestRegenerateReplacesTrailingModelTurn(t *testing.T) {
	gen := &stubGenerator{reply: "重来一次 [MSG_SPLIT] 这次认真的 [MSG_SPLIT] 别生气嘛 [MSG_SPLIT] 好不好 [MSG_SPLIT] 求你了"}
	f := newPipelineFixture(t, gen)

	f.store.Load("c-1", []convmodels.Message{
		{ID: "m-1", Kind: convmodels.KindText, Text: "讲个笑话", IsSelf: true},
		{ID: "m-2", Kind: convmodels.KindText, Text: "呃", IsSelf: false},
		{ID: "m-3", Kind: convmodels.KindText, Text: "想不出来", IsSelf: false},
	})

	result, err := f.svc.Regenerate(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Fragments)

	require.Equal(t, 1, gen.callCount())
	req := gen.calls[0]
	// the discarded model turn is absent from the composed history
	for _, m := range req.Messages[1:] {
		assert.NotEqual(t, "想不出来", m.Content)
	}

	require.Eventually(t, func() bool {
		return modelMessages(f.store.Messages("c-1")) == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "讲个笑话", f.store.Messages("c-1")[0].Text)
}

func TestNewTurnSupersedesDelivery(t *testing.T) {
	gen := &stubGenerator{reply: "一一 [MSG_SPLIT] 二二 [MSG_SPLIT] 三三 [MSG_SPLIT] 四四 [MSG_SPLIT] 五五"}
	st := store.NewStore()
	contacts := contactservice.NewContactService(newMemContactRepo(testContact()))
	svc := NewService(ServiceOptions{
		Store:     st,
		Contacts:  contacts,
		Lore:      loreservice.NewLoreService(&memLoreRepo{}, &memWordRepo{}),
		Composer:  NewComposer(20, 5),
		Generator: gen,
		Segmenter: NewSegmenter(5),
		// slow drip so the first delivery is still in flight
		Scheduler: NewScheduler(200*time.Millisecond, time.Millisecond),
		Moods:     NewCacheMoodStore(),
		Metrics:   observability.NewPipelineMetrics(),
	})
	t.Cleanup(svc.Shutdown)

	_, err := svc.SubmitTurn(context.Background(), "c-1", &convmodels.Message{
		Kind: convmodels.KindText, Text: "第一问",
	})
	require.NoError(t, err)

	before := modelMessages(st.Messages("c-1"))

	_, err = svc.SubmitTurn(context.Background(), "c-1", &convmodels.Message{
		Kind: convmodels.KindText, Text: "第二问",
	})
	require.NoError(t, err)
	svc.Shutdown()

	// the superseded delivery never finished its five fragments
	after := modelMessages(st.Messages("c-1"))
	assert.Less(t, after-before, 5+5)
	assert.Equal(t, 2, gen.callCount())
}

func TestSendMessageAutoClaim(t *testing.T) {
	gen := &stubGenerator{reply: "ignored"}
	f := newPipelineFixture(t, gen)

	msg, err := f.svc.SendMessage("c-1", convmodels.Message{
		Kind:   convmodels.KindRedPacket,
		Amount: "8.88",
	})
	require.NoError(t, err)
	assert.Equal(t, convmodels.ClaimUnclaimed, msg.ClaimStatus)

	require.Eventually(t, func() bool {
		msgs := f.store.Messages("c-1")
		return len(msgs) == 1 && msgs[0].ClaimStatus == convmodels.ClaimClaimed
	}, time.Second, 5*time.Millisecond)

	// plain text never gets a claim status
	plain, err := f.svc.SendMessage("c-1", convmodels.Message{
		Kind: convmodels.KindText,
		Text: "收到了吗",
	})
	require.NoError(t, err)
	assert.Empty(t, plain.ClaimStatus)
	assert.Zero(t, gen.callCount())
}

func TestDeleteMessagesCancelsPendingClaim(t *testing.T) {
	st := store.NewStore()
	// slow flip so the delete lands while the claim is still pending
	claims := NewClaimScheduler(st, 60*time.Millisecond, time.Millisecond)
	svc := NewService(ServiceOptions{
		Store:  st,
		Claims: claims,
		Moods:  NewCacheMoodStore(),
	})
	t.Cleanup(svc.Shutdown)

	msg, err := svc.SendMessage("c-1", convmodels.Message{
		Kind:   convmodels.KindTransfer,
		Amount: "20.00",
	})
	require.NoError(t, err)

	removed := svc.DeleteMessages("c-1", []string{msg.ID})
	require.Len(t, removed, 1)
	assert.Empty(t, st.Messages("c-1"))

	// the cancelled task must not flip a later message reusing the ID
	require.NoError(t, st.Append("c-1", *msg))
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, convmodels.ClaimUnclaimed, st.Messages("c-1")[0].ClaimStatus)
}

func TestTurnFailureCodes(t *testing.T) {
	assert.Equal(t, "CONTACT_NOT_FOUND",
		codeOf(apperrors.NewNotFoundError("CONTACT_NOT_FOUND", "contact does not exist")))
	assert.Equal(t, CodeMissingPersona, codeOf(newMissingPersonaError("c-1")))
	assert.Equal(t, CodeMalformedReply, codeOf(newMalformedReplyError("empty choices")))
	// anything unrecognized counts against the gateway
	assert.Equal(t, CodeGatewayUnavailable, codeOf(errors.New("dial tcp: connection refused")))
}
