package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"battle-arena-service/models"
	"battle-arena-service/utils"

	"github.com/golang-jwt/jwt/v5"
)

// descriptorVersion is the deep-link schema version. Bump it when the
// contract with the arena runtime changes; the runtime rejects versions it
// doesn't know.
const descriptorVersion = 1

// arenaTokenTTL bounds how long a handoff token stays valid
const arenaTokenTTL = 5 * time.Minute

// Participant is one entry of the descriptor's participant list
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BattleDescriptor is the signed hand-off contract sent to the arena runtime
type BattleDescriptor struct {
	Version     int                  `json:"v"`
	SessionID   string               `json:"session_id"`
	ChallengeID string               `json:"challenge_id"`
	Mode        models.ChallengeMode `json:"mode"`
	Participants []Participant       `json:"participants"`
	StakeType   models.StakeType     `json:"stake_type"`
	StakeAmount int64                `json:"stake_amount"`
	Callback    string               `json:"callback"`
}

// BattleOutcome is the raw result extracted from the runtime's callback.
// Rewards reported by the runtime are advisory — the economy always
// recomputes its own payout.
type BattleOutcome struct {
	SessionID     string
	ChallengeID   string
	Won           bool
	MyScore       int64
	OpponentScore int64
	DurationSec   int
	WasClutch     bool
	IsRevenge     bool
	Rewards       *models.RewardBreakdown
}

// ArenaBridge abstracts the external battle renderer so it can be swapped
// with a test double. Injected, never a process-wide singleton.
type ArenaBridge interface {
	// LaunchBattle hands the descriptor to the external runtime. false means
	// the runtime did not take the battle and the caller must fall back to
	// the local engine.
	LaunchBattle(desc BattleDescriptor) (bool, error)
	// ParseBattleResult extracts an outcome from an inbound deep link.
	// Returns nil on anything malformed so foreign link traffic is ignored,
	// never an error path.
	ParseBattleResult(raw string) *BattleOutcome
	// VerifyPending checks a callback's session id against the single
	// outstanding handoff.
	VerifyPending(sessionID string) error
	// ClearPending drops the outstanding handoff (battle finalized or abandoned)
	ClearPending(sessionID string)
}

// DeepLinkBridge drives the real arena runtime over its invocation endpoint
// with an arena:// deep link carrying the signed descriptor.
type DeepLinkBridge struct {
	scheme      string
	resultHost  string
	runtimeURL  string // empty → runtime not installed, every launch falls back
	callbackURL string
	secret      []byte
	client      *http.Client

	mu      sync.Mutex
	pending map[string]struct{} // session ids with an outstanding handoff
}

func NewDeepLinkBridge() *DeepLinkBridge {
	secret := os.Getenv("ARENA_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("❌ ARENA_TOKEN_SECRET is not set — cannot sign arena handoff tokens")
	}
	return &DeepLinkBridge{
		scheme:      "arena",
		resultHost:  "battle-result",
		runtimeURL:  os.Getenv("ARENA_RUNTIME_URL"),
		callbackURL: os.Getenv("ARENA_CALLBACK_URL"),
		secret:      []byte(secret),
		client:      utils.HTTPClient,
		pending:     make(map[string]struct{}),
	}
}

// LaunchBattle builds the deep link and posts it to the runtime's invocation
// endpoint. Any failure reports the runtime unavailable; the caller falls
// back to the local engine, so this is not a user-visible error.
func (b *DeepLinkBridge) LaunchBattle(desc BattleDescriptor) (bool, error) {
	if b.runtimeURL == "" {
		return false, ErrRuntimeUnavailable
	}

	link, err := b.buildLaunchLink(desc)
	if err != nil {
		return false, fmt.Errorf("failed to build launch link: %w", err)
	}

	body, _ := json.Marshal(map[string]string{"deep_link": link})
	req, err := http.NewRequest(http.MethodPost, b.runtimeURL+"/v1/launch", bytes.NewReader(body))
	if err != nil {
		return false, ErrRuntimeUnavailable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		log.Printf("⚠️  Arena runtime unreachable: %v", err)
		return false, ErrRuntimeUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("⚠️  Arena runtime rejected handoff for session %s: status %d", desc.SessionID, resp.StatusCode)
		return false, ErrRuntimeUnavailable
	}

	b.mu.Lock()
	b.pending[desc.SessionID] = struct{}{}
	b.mu.Unlock()
	return true, nil
}

// ParseBattleResult validates and type-checks an inbound deep link.
// arena://battle-result?session_id=..&challenge_id=..&won=..&my_score=..&opponent_score=..&duration=..
func (b *DeepLinkBridge) ParseBattleResult(raw string) *BattleOutcome {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	if u.Scheme != b.scheme || u.Host != b.resultHost {
		// foreign deep-link traffic, silently ignored
		return nil
	}

	q := u.Query()
	sessionID := q.Get("session_id")
	challengeID := q.Get("challenge_id")
	if sessionID == "" || challengeID == "" {
		return nil
	}

	won, err := strconv.ParseBool(q.Get("won"))
	if err != nil {
		return nil
	}
	myScore, err := strconv.ParseInt(q.Get("my_score"), 10, 64)
	if err != nil {
		return nil
	}
	opponentScore, err := strconv.ParseInt(q.Get("opponent_score"), 10, 64)
	if err != nil {
		return nil
	}
	duration, err := strconv.Atoi(q.Get("duration"))
	if err != nil || duration < 0 {
		return nil
	}

	outcome := &BattleOutcome{
		SessionID:     sessionID,
		ChallengeID:   challengeID,
		Won:           won,
		MyScore:       myScore,
		OpponentScore: opponentScore,
		DurationSec:   duration,
	}

	if v := q.Get("was_clutch"); v != "" {
		clutch, err := strconv.ParseBool(v)
		if err != nil {
			return nil
		}
		outcome.WasClutch = clutch
	}
	if v := q.Get("is_revenge"); v != "" {
		revenge, err := strconv.ParseBool(v)
		if err != nil {
			return nil
		}
		outcome.IsRevenge = revenge
	}
	if v := q.Get("rewards"); v != "" {
		var rewards models.RewardBreakdown
		if err := json.Unmarshal([]byte(v), &rewards); err != nil {
			return nil
		}
		outcome.Rewards = &rewards
	}

	return outcome
}

// VerifyPending enforces the session-identity check on inbound callbacks
func (b *DeepLinkBridge) VerifyPending(sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[sessionID]; !ok {
		return ErrSessionMismatch
	}
	return nil
}

// ClearPending forgets a session's outstanding handoff
func (b *DeepLinkBridge) ClearPending(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, sessionID)
}

func (b *DeepLinkBridge) buildLaunchLink(desc BattleDescriptor) (string, error) {
	desc.Version = descriptorVersion
	if desc.Callback == "" {
		desc.Callback = b.callbackURL
	}

	participants, err := json.Marshal(desc.Participants)
	if err != nil {
		return "", err
	}
	stake, err := json.Marshal(map[string]interface{}{
		"type":   desc.StakeType,
		"amount": desc.StakeAmount,
	})
	if err != nil {
		return "", err
	}

	token, err := b.signToken(desc.SessionID)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("v", strconv.Itoa(desc.Version))
	q.Set("session_id", desc.SessionID)
	q.Set("challenge_id", desc.ChallengeID)
	q.Set("mode", string(desc.Mode))
	q.Set("participants", string(participants))
	q.Set("stake", string(stake))
	q.Set("token", token)
	q.Set("callback", desc.Callback)

	return fmt.Sprintf("%s://battle?%s", b.scheme, q.Encode()), nil
}

func (b *DeepLinkBridge) signToken(sessionID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    "battle-arena-service",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(arenaTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}
