package services

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battle-arena-service/models"
)

func testBridge() *DeepLinkBridge {
	return &DeepLinkBridge{
		scheme:      "arena",
		resultHost:  "battle-result",
		callbackURL: "https://arena.example.com/arena/callback",
		secret:      []byte("test-secret"),
		pending:     make(map[string]struct{}),
	}
}

func TestParseBattleResultGoodLink(t *testing.T) {
	b := testBridge()

	out := b.ParseBattleResult("arena://battle-result?session_id=sess-1&challenge_id=chal-1&won=true&my_score=42&opponent_score=30&duration=55")
	require.NotNil(t, out)
	assert.Equal(t, "sess-1", out.SessionID)
	assert.Equal(t, "chal-1", out.ChallengeID)
	assert.True(t, out.Won)
	assert.Equal(t, int64(42), out.MyScore)
	assert.Equal(t, int64(30), out.OpponentScore)
	assert.Equal(t, 55, out.DurationSec)
	assert.False(t, out.WasClutch)
	assert.Nil(t, out.Rewards)
}

func TestParseBattleResultOptionalFields(t *testing.T) {
	b := testBridge()

	out := b.ParseBattleResult("arena://battle-result?session_id=s&challenge_id=c&won=false&my_score=1&opponent_score=2&duration=10&was_clutch=true&is_revenge=true&rewards=%7B%22xp%22%3A150%7D")
	require.NotNil(t, out)
	assert.True(t, out.WasClutch)
	assert.True(t, out.IsRevenge)
	require.NotNil(t, out.Rewards)
	assert.Equal(t, int64(150), out.Rewards.XP)
}

func TestParseBattleResultRejectsForeignLinks(t *testing.T) {
	b := testBridge()

	links := []string{
		"https://battle-result?session_id=s&challenge_id=c&won=true&my_score=1&opponent_score=2&duration=10",
		"arena://other-host?session_id=s&challenge_id=c&won=true&my_score=1&opponent_score=2&duration=10",
		"otherapp://battle-result?session_id=s&challenge_id=c&won=true&my_score=1&opponent_score=2&duration=10",
		"not a url at ://all",
	}
	for _, link := range links {
		assert.Nil(t, b.ParseBattleResult(link), link)
	}
}

func TestParseBattleResultRejectsMalformedFields(t *testing.T) {
	b := testBridge()

	links := []string{
		// missing identity
		"arena://battle-result?won=true&my_score=1&opponent_score=2&duration=10",
		"arena://battle-result?session_id=s&won=true&my_score=1&opponent_score=2&duration=10",
		// wrong types
		"arena://battle-result?session_id=s&challenge_id=c&won=maybe&my_score=1&opponent_score=2&duration=10",
		"arena://battle-result?session_id=s&challenge_id=c&won=true&my_score=high&opponent_score=2&duration=10",
		"arena://battle-result?session_id=s&challenge_id=c&won=true&my_score=1&opponent_score=2&duration=-5",
		"arena://battle-result?session_id=s&challenge_id=c&won=true&my_score=1&opponent_score=2&duration=10&was_clutch=sure",
		"arena://battle-result?session_id=s&challenge_id=c&won=true&my_score=1&opponent_score=2&duration=10&rewards=notjson",
	}
	for _, link := range links {
		assert.Nil(t, b.ParseBattleResult(link), link)
	}
}

func TestPendingSessionIdentity(t *testing.T) {
	b := testBridge()

	assert.ErrorIs(t, b.VerifyPending("sess-1"), ErrSessionMismatch, "nothing pending")

	b.pending["sess-1"] = struct{}{}
	assert.NoError(t, b.VerifyPending("sess-1"))
	assert.ErrorIs(t, b.VerifyPending("sess-2"), ErrSessionMismatch)

	b.ClearPending("sess-2") // unknown id is a no-op
	assert.NoError(t, b.VerifyPending("sess-1"))

	b.ClearPending("sess-1")
	assert.ErrorIs(t, b.VerifyPending("sess-1"), ErrSessionMismatch)
}

func TestConcurrentHandoffsStayPending(t *testing.T) {
	b := testBridge()

	// two players' battles handed off back to back
	b.pending["sess-1"] = struct{}{}
	b.pending["sess-2"] = struct{}{}

	assert.NoError(t, b.VerifyPending("sess-1"))
	assert.NoError(t, b.VerifyPending("sess-2"))

	// resolving one leaves the other's callback verifiable
	b.ClearPending("sess-2")
	assert.NoError(t, b.VerifyPending("sess-1"))
	assert.ErrorIs(t, b.VerifyPending("sess-2"), ErrSessionMismatch)
}

func TestBuildLaunchLink(t *testing.T) {
	b := testBridge()

	link, err := b.buildLaunchLink(BattleDescriptor{
		SessionID:   "sess-1",
		ChallengeID: "chal-1",
		Mode:        models.ModeOneVsOne,
		Participants: []Participant{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob"},
		},
		StakeType:   models.StakeCoins,
		StakeAmount: 100,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "arena://battle?"))
	assert.Contains(t, link, "session_id=sess-1")
	assert.Contains(t, link, "v=1")
	assert.Contains(t, link, "callback=")
}

func TestHandoffTokenSignedAndBounded(t *testing.T) {
	b := testBridge()

	raw, err := b.signToken("sess-1")
	require.NoError(t, err)

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (interface{}, error) {
		return b.secret, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, "sess-1", claims.Subject)
	assert.Equal(t, "battle-arena-service", claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, claims.IssuedAt.Add(arenaTokenTTL), claims.ExpiresAt.Time, 0)
}
