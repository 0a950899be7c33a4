package worker

import (
	"context"
	"fmt"

	"github.com/hooplab/achievements-worker/internal/models"
)

// mockCounterStore applies upserts in memory with the same commutative math
// the real store performs.
type mockCounterStore struct {
	career map[string]*models.PlayerCounters // by player
	season map[string]*models.PlayerCounters // by player|season
	failOn map[string]error                  // method name -> error
	Calls  []string
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{
		career: make(map[string]*models.PlayerCounters),
		season: make(map[string]*models.PlayerCounters),
		failOn: make(map[string]error),
	}
}

func (m *mockCounterStore) UpdateCareer(ctx context.Context, playerID string, stats models.PerGameStats) error {
	m.Calls = append(m.Calls, "UpdateCareer")
	if err := m.failOn["UpdateCareer"]; err != nil {
		return err
	}
	row := m.career[playerID]
	if row == nil {
		row = &models.PlayerCounters{PlayerID: playerID, Scope: models.CounterCareer}
		m.career[playerID] = row
	}
	applyStats(row, stats)
	return nil
}

func (m *mockCounterStore) UpdateSeason(ctx context.Context, playerID, seasonID string, stats models.PerGameStats) error {
	m.Calls = append(m.Calls, "UpdateSeason")
	if err := m.failOn["UpdateSeason"]; err != nil {
		return err
	}
	key := playerID + "|" + seasonID
	row := m.season[key]
	if row == nil {
		row = &models.PlayerCounters{PlayerID: playerID, Scope: models.CounterSeason, SeasonID: seasonID}
		m.season[key] = row
	}
	applyStats(row, stats)
	return nil
}

func (m *mockCounterStore) Fetch(ctx context.Context, playerID, seasonID string) (*models.PlayerCounters, *models.PlayerCounters, error) {
	m.Calls = append(m.Calls, "Fetch")
	if err := m.failOn["Fetch"]; err != nil {
		return nil, nil, err
	}
	return m.career[playerID], m.season[playerID+"|"+seasonID], nil
}

func applyStats(row *models.PlayerCounters, stats models.PerGameStats) {
	flags := models.DeriveFlags(stats)
	row.GamesPlayed++
	row.PtsTotal += stats.Points
	row.AstTotal += stats.Ast
	row.RebTotal += stats.Reb
	row.StlTotal += stats.Stl
	row.BlkTotal += stats.Blk
	row.TovTotal += stats.Tov
	row.MinutesTotal += stats.Minutes
	row.Flags.Has50PtGame = row.Flags.Has50PtGame || flags.Has50PtGame
	row.Flags.HasDoubleDouble = row.Flags.HasDoubleDouble || flags.HasDoubleDouble
	row.Flags.HasTripleDouble = row.Flags.HasTripleDouble || flags.HasTripleDouble
	if stats.Points > row.MaxPtsGame {
		row.MaxPtsGame = stats.Points
	}
	if stats.Ast > row.MaxAstGame {
		row.MaxAstGame = stats.Ast
	}
	if stats.Reb > row.MaxRebGame {
		row.MaxRebGame = stats.Reb
	}
}

// mockRuleSource returns a fixed rule set.
type mockRuleSource struct {
	rules []models.Rule
	err   error
	Calls int
}

func (m *mockRuleSource) FetchCandidateRules(ctx context.Context, gameYear, leagueID, seasonID string) ([]models.Rule, error) {
	m.Calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.rules, nil
}

// mockAwardLedger dedupes on the idempotency tuple like the real table.
type mockAwardLedger struct {
	inserted  map[string]*models.Award // tuple -> award
	attached  map[string]string        // award_id -> url
	insertErr error
	attachErr error
	nextID    int
}

func newMockAwardLedger() *mockAwardLedger {
	return &mockAwardLedger{
		inserted: make(map[string]*models.Award),
		attached: make(map[string]string),
	}
}

func tupleKey(a *models.Award) string {
	return fmt.Sprintf("%s|%s|%s|%d", a.PlayerID, a.RuleID, a.ScopeKey, a.Level)
}

func (m *mockAwardLedger) InsertAward(ctx context.Context, award *models.Award) (string, bool, error) {
	if m.insertErr != nil {
		return "", false, m.insertErr
	}
	key := tupleKey(award)
	if _, ok := m.inserted[key]; ok {
		return "", false, nil
	}
	m.nextID++
	copied := *award
	copied.AwardID = fmt.Sprintf("award-%d", m.nextID)
	m.inserted[key] = &copied
	return copied.AwardID, true, nil
}

func (m *mockAwardLedger) AttachAssetURL(ctx context.Context, awardID, url string) error {
	if m.attachErr != nil {
		return m.attachErr
	}
	m.attached[awardID] = url
	return nil
}

// mockBadgeUploader fabricates URLs; errs pops one entry per call.
type mockBadgeUploader struct {
	errs  []error
	Calls int
}

func (m *mockBadgeUploader) GenerateAndUpload(ctx context.Context, award *models.Award) (string, error) {
	m.Calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("https://cdn.test/badges/%s/%s.svg", award.PlayerID, award.AwardID), nil
}

// mockQueueDriver records supervisor interactions.
type mockQueueDriver struct {
	batches  [][]models.QueueItem
	claimErr error
	doneErr  error
	retryErr error
	lag      int64

	Claimed []int
	Done    [][]int64
	Retried []retryCall
}

type retryCall struct {
	QueueID int64
	Reason  string
}

func (m *mockQueueDriver) ClaimBatch(ctx context.Context, limit int) ([]models.QueueItem, error) {
	m.Claimed = append(m.Claimed, limit)
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func (m *mockQueueDriver) MarkDone(ctx context.Context, queueIDs []int64) error {
	if m.doneErr != nil {
		return m.doneErr
	}
	m.Done = append(m.Done, queueIDs)
	return nil
}

func (m *mockQueueDriver) MarkRetry(ctx context.Context, queueID int64, errMsg string) error {
	if m.retryErr != nil {
		return m.retryErr
	}
	m.Retried = append(m.Retried, retryCall{QueueID: queueID, Reason: errMsg})
	return nil
}

func (m *mockQueueDriver) QueueLag(ctx context.Context) (int64, error) {
	return m.lag, nil
}

// mockEventSource serves events from a fixed map.
type mockEventSource struct {
	events map[string]*models.Event
	err    error
}

func (m *mockEventSource) LoadEvents(ctx context.Context, eventIDs []string) (map[string]*models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*models.Event)
	for _, id := range eventIDs {
		if ev, ok := m.events[id]; ok {
			out[id] = ev
		}
	}
	return out, nil
}

// mockProcessor lets supervisor tests fail specific events.
type mockProcessor struct {
	failFor map[string]error
	Seen    []string
}

func (m *mockProcessor) Process(ctx context.Context, ev *models.Event) error {
	m.Seen = append(m.Seen, ev.EventID)
	if err, ok := m.failFor[ev.EventID]; ok {
		return err
	}
	return nil
}
