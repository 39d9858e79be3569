package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/cache"
	"github.com/brezcode/brezcode-platform-sub008/internal/catalog"
	"github.com/brezcode/brezcode-platform-sub008/internal/logger"
	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/scoring"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories/memory"
)

const (
	customerLine = "I found a lump during a self-exam last night and I'm scared it could be cancer."
	avatarLine   = "I understand how frightening this is. Most breast lumps are not cancer, and I recommend scheduling a clinical breast exam soon."
	revisedLine  = "I hear how scared you are, and that is completely understandable. Most lumps turn out to be benign, but let's schedule a clinical breast exam this week so you get real answers."
	choiceLines  = "Yes, I'd like details\nI'm too scared to book anything\nWhat does the exam involve?"
)

var errInjected = errors.New("injected failure")

// fakeGenerator answers by purpose and counts calls. fail[p] failures are
// injected before succeeding; block[p] waits for the context to expire.
type fakeGenerator struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int
	block map[string]bool
	reply map[string]string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls: make(map[string]int),
		fail:  make(map[string]int),
		block: make(map[string]bool),
		reply: map[string]string{
			llm.PurposeCustomerTurn: customerLine,
			llm.PurposeAvatarTurn:   avatarLine,
			llm.PurposeChoices:      choiceLines,
			llm.PurposeRevision:     revisedLine,
		},
	}
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, gc llm.GenerationContext) (string, error) {
	g.mu.Lock()
	g.calls[gc.Purpose]++
	block := g.block[gc.Purpose]
	failNow := g.fail[gc.Purpose] > 0
	if failNow {
		g.fail[gc.Purpose]--
	}
	reply := g.reply[gc.Purpose]
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if failNow {
		return "", errInjected
	}
	return reply, nil
}

func (g *fakeGenerator) count(purpose string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[purpose]
}

func (g *fakeGenerator) set(purpose, reply string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reply[purpose] = reply
}

// fakeScorer gives revised content a high score and everything else a fixed one.
type fakeScorer struct {
	base int
	err  error
}

func (s fakeScorer) Score(_ context.Context, candidate string, _ scoring.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if strings.Contains(candidate, "completely understandable") {
		return 92, nil
	}
	return s.base, nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *models.KnowledgeTransferRecord) error {
	return errInjected
}

// flakyLearnedRepo fails upserts while failUpsert is set and reads while failGet is set.
type flakyLearnedRepo struct {
	*memory.LearnedResponseRepo
	failUpsert bool
	failGet    bool
}

func (r *flakyLearnedRepo) Get(ctx context.Context, avatarID, fingerprint string) (*models.LearnedResponse, error) {
	if r.failGet {
		return nil, errInjected
	}
	return r.LearnedResponseRepo.Get(ctx, avatarID, fingerprint)
}

func (r *flakyLearnedRepo) Upsert(ctx context.Context, lr *models.LearnedResponse) error {
	if r.failUpsert {
		return errInjected
	}
	return r.LearnedResponseRepo.Upsert(ctx, lr)
}

type testEnv struct {
	sessions  *memory.SessionRepo
	learned   *flakyLearnedRepo
	transfers *memory.TransferRepo
	knowledge *memory.KnowledgeRepo
	requests  *memory.RequestLog
	gen       *fakeGenerator
	catalog   catalog.Catalog

	sessionSvc SessionService
	engine     TurnEngine
	feedback   FeedbackService
	bridge     *TransferBridge
}

type envOption func(*envConfig)

type envConfig struct {
	scorer    scoring.Scorer
	publisher KnowledgePublisher
	eligible  []string
	timeout   time.Duration
}

func withScorer(s scoring.Scorer) envOption       { return func(c *envConfig) { c.scorer = s } }
func withPublisher(p KnowledgePublisher) envOption { return func(c *envConfig) { c.publisher = p } }
func withEligible(a ...string) envOption          { return func(c *envConfig) { c.eligible = a } }
func withTimeout(d time.Duration) envOption       { return func(c *envConfig) { c.timeout = d } }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{
		scorer:   fakeScorer{base: 72},
		eligible: []string{"dr_sakura"},
		timeout:  time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	log := logger.Discard()
	env := &testEnv{
		sessions:  memory.NewSessionRepo(),
		learned:   &flakyLearnedRepo{LearnedResponseRepo: memory.NewLearnedResponseRepo()},
		transfers: memory.NewTransferRepo(),
		knowledge: memory.NewKnowledgeRepo(),
		requests:  memory.NewRequestLog(),
		gen:       newFakeGenerator(),
		catalog:   cat,
	}
	if cfg.publisher == nil {
		cfg.publisher = NewKnowledgeBasePublisher(env.knowledge, nil, log)
	}

	locks := NewSessionLocks()
	store := NewLearnedStore(env.learned, cache.NewMemoryCache(), time.Minute, log)
	env.bridge = NewTransferBridge(env.transfers, cfg.publisher, cat, TransferConfig{
		TargetPlatform:  "brezcode",
		EligibleAvatars: cfg.eligible,
		Threshold:       80,
	}, log)

	env.sessionSvc = NewSessionService(SessionDeps{
		Sessions:   env.sessions,
		Catalog:    cat,
		Locks:      locks,
		Dispatcher: &InlineDispatcher{Bridge: env.bridge, Logger: log},
		Logger:     log,
	})
	env.engine = NewTurnEngine(TurnEngineDeps{
		Sessions:          env.sessions,
		Catalog:           cat,
		Learned:           store,
		Generator:         env.gen,
		Scorer:            cfg.scorer,
		Locks:             locks,
		Requests:          env.requests,
		Logger:            log,
		GenerationTimeout: cfg.timeout,
		DedupWindow:       16,
		ChoicesEnabled:    true,
	})
	env.feedback = NewFeedbackService(FeedbackDeps{
		Sessions:          env.sessions,
		Catalog:           cat,
		Learned:           store,
		Generator:         env.gen,
		Scorer:            cfg.scorer,
		Locks:             locks,
		Requests:          env.requests,
		Logger:            log,
		GenerationTimeout: cfg.timeout,
		DedupWindow:       16,
	})
	return env
}

func (e *testEnv) newSession(t *testing.T) *models.Session {
	t.Helper()
	s, err := e.sessionSvc.Create(context.Background(), "user-1", "dr_sakura", "breast_health_anxiety")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func (e *testEnv) advance(t *testing.T, sessionID string) *models.Session {
	t.Helper()
	s, err := e.engine.Advance(context.Background(), AdvanceRequest{SessionID: sessionID})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	return s
}

func assertAlternating(t *testing.T, s *models.Session) {
	t.Helper()
	for i, m := range s.Messages {
		wantRole := models.RoleCustomer
		if i%2 == 1 {
			wantRole = models.RoleAvatar
		}
		if m.Role != wantRole {
			t.Fatalf("message %d role = %s, want %s", i, m.Role, wantRole)
		}
		if m.Index != i {
			t.Fatalf("message %d has index %d", i, m.Index)
		}
	}
}
