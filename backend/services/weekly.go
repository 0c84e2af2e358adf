package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"sangha/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRevokeUsed is returned when the one-shot leave revoke for a
	// week-range has already been spent.
	ErrRevokeUsed = errors.New("leave revoke already used for this week")
	// ErrNotOnLeave is returned when revoking without an active leave.
	ErrNotOnLeave = errors.New("no active leave to revoke")
	// ErrEmptyReason is returned for a leave request without a reason.
	ErrEmptyReason = errors.New("leave reason must not be empty")
	// ErrBadCheckInMode is returned for an unknown check-in mode.
	ErrBadCheckInMode = errors.New("check-in mode must be online or offline")
)

// SnapshotConfigKey is the global-config record holding the shared weekly
// snapshot maintained by elevated actors.
const SnapshotConfigKey = "weekly_snapshot"

// WeeklyTracker drives the per-(user, week-range) leave/check-in state
// machine. Revoking leave is one-shot per week; leave requests are not.
type WeeklyTracker struct {
	mu     sync.Mutex
	db     *gorm.DB
	cache  *Cache
	clock  Clock
	logger *log.Logger
}

func NewWeeklyTracker(db *gorm.DB, cache *Cache, clock Clock, logger *log.Logger) *WeeklyTracker {
	return &WeeklyTracker{db: clockedDB(db, clock), cache: cache, clock: clock, logger: logger}
}

func weeklyKey(userID uint) string {
	return fmt.Sprintf("%s%d", KeyWeeklyStates, userID)
}

// State returns the current state for (userID, weekRange), or a fresh
// unpersisted one when the user has not interacted this week.
func (t *WeeklyTracker) State(userID uint, weekRange string) *models.WeeklyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, _ := t.findLocked(userID, weekRange)
	return st
}

// RequestLeave puts the user on leave for the week. Allowed from both the
// active and the on-leave state; it only rewrites the reason.
func (t *WeeklyTracker) RequestLeave(userID uint, userName, weekRange, reason string, elevated bool) (*models.WeeklyState, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, found := t.findLocked(userID, weekRange)
	st.UserName = userName
	st.LeaveReason = reason
	t.persistLocked(st, found, elevated)
	return st, nil
}

// RevokeLeave cancels an active leave. It succeeds at most once per
// (user, week-range); afterwards the revoke stays spent for the whole week
// even if leave is requested again.
func (t *WeeklyTracker) RevokeLeave(userID uint, weekRange string, elevated bool) (*models.WeeklyState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, found := t.findLocked(userID, weekRange)
	if st.HasRevokedLeave {
		return nil, ErrRevokeUsed
	}
	if !st.OnLeave() {
		return nil, ErrNotOnLeave
	}

	st.LeaveReason = ""
	st.HasRevokedLeave = true
	t.persistLocked(st, found, elevated)
	return st, nil
}

// CheckIn records the session attendance mode. Leave status is not checked;
// a member on leave may still check in.
func (t *WeeklyTracker) CheckIn(userID uint, userName, weekRange string, mode models.CheckInStatus, elevated bool) (*models.WeeklyState, error) {
	if !mode.Valid() {
		return nil, ErrBadCheckInMode
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, found := t.findLocked(userID, weekRange)
	st.UserName = userName
	st.CheckInStatus = mode
	t.persistLocked(st, found, elevated)
	return st, nil
}

// findLocked loads the row from the record store, falling back to the local
// mirror when the store is unreachable, then to a fresh state.
func (t *WeeklyTracker) findLocked(userID uint, weekRange string) (*models.WeeklyState, bool) {
	var st models.WeeklyState
	err := t.db.Where("user_id = ? AND week_range = ?", userID, weekRange).First(&st).Error
	if err == nil {
		return &st, true
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.logger.Printf("weekly: remote load failed for user %d week %s: %v", userID, weekRange, err)
		mirror := map[string]*models.WeeklyState{}
		if t.cache.GetJSON(weeklyKey(userID), &mirror) {
			if cached, ok := mirror[weekRange]; ok {
				return cached, false
			}
		}
	}

	return &models.WeeklyState{
		UserID:        userID,
		WeekRange:     weekRange,
		CheckInStatus: models.CheckInNone,
	}, false
}

// persistLocked writes the transition through to the record store and the
// local mirror. Store failures are logged; the mutated state stands.
func (t *WeeklyTracker) persistLocked(st *models.WeeklyState, found bool, elevated bool) {
	var err error
	if found {
		err = t.db.Save(st).Error
	} else {
		err = t.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "week_range"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_name", "leave_reason", "check_in_status", "has_revoked_leave", "updated_at",
			}),
		}).Create(st).Error
	}
	if err != nil {
		t.logger.Printf("weekly: remote write failed for user %d week %s: %v", st.UserID, st.WeekRange, err)
	}

	mirror := map[string]*models.WeeklyState{}
	t.cache.GetJSON(weeklyKey(st.UserID), &mirror)
	mirror[st.WeekRange] = st
	if err := t.cache.SetJSON(weeklyKey(st.UserID), mirror); err != nil {
		t.logger.Printf("weekly: cache write failed for user %d: %v", st.UserID, err)
	}

	if elevated {
		t.mergeSnapshotLocked(st)
	}
}

type snapshotEntry struct {
	UserName        string               `json:"user_name"`
	LeaveReason     string               `json:"leave_reason"`
	CheckInStatus   models.CheckInStatus `json:"check_in_status"`
	HasRevokedLeave bool                 `json:"has_revoked_leave"`
	UpdatedAt       string               `json:"updated_at"`
}

// mergeSnapshotLocked folds the transition into the shared global snapshot
// record that admin dashboards read.
func (t *WeeklyTracker) mergeSnapshotLocked(st *models.WeeklyState) {
	var cfg models.GlobalConfig
	snapshot := map[string]snapshotEntry{}

	err := t.db.Where("key = ?", SnapshotConfigKey).First(&cfg).Error
	if err == nil && cfg.Content != "" {
		if jsonErr := json.Unmarshal([]byte(cfg.Content), &snapshot); jsonErr != nil {
			t.logger.Printf("weekly: malformed snapshot record, rebuilding: %v", jsonErr)
			snapshot = map[string]snapshotEntry{}
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		t.logger.Printf("weekly: snapshot load failed: %v", err)
		return
	}

	key := fmt.Sprintf("%d:%s", st.UserID, st.WeekRange)
	snapshot[key] = snapshotEntry{
		UserName:        st.UserName,
		LeaveReason:     st.LeaveReason,
		CheckInStatus:   st.CheckInStatus,
		HasRevokedLeave: st.HasRevokedLeave,
		UpdatedAt:       t.clock.Now().In(referenceZone).Format("2006-01-02 15:04:05"),
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		t.logger.Printf("weekly: snapshot encode failed: %v", err)
		return
	}

	err = t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&models.GlobalConfig{Key: SnapshotConfigKey, Content: string(raw)}).Error
	if err != nil {
		t.logger.Printf("weekly: snapshot write failed: %v", err)
	}
}
