package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"quizslot/internal/choice"
	"quizslot/internal/control"
	"quizslot/internal/database"
	"quizslot/internal/domain"
	"quizslot/internal/events"
	"quizslot/internal/question"
	"quizslot/internal/ranking"
	"quizslot/internal/reel"
	"quizslot/internal/rng"
	"quizslot/internal/workbook"
)

type testHarness struct {
	engine  *Engine
	db      *database.DB
	store   *question.Store
	control *control.Service
	events  *events.Service
	ranking *ranking.Service
	mapper  *reel.Mapper
}

func setupEngine(t *testing.T) *testHarness {
	t.Helper()

	db, err := database.New("sqlite3", t.TempDir()+"/game.db")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	rngSvc := rng.New()
	store := question.NewStore()
	eventSvc := events.New(db.DB)
	controlSvc := control.New(eventSvc)
	rankingSvc := ranking.New(db.DB)
	mapper := reel.NewMapper(reel.DefaultConfig(), rngSvc)

	engine := New(db.DB, store, question.NewSelector(rngSvc, 0), mapper,
		choice.NewBuilder(rngSvc), rankingSvc, eventSvc, controlSvc,
		question.DefaultHistorySize, zap.NewNop())

	return &testHarness{
		engine:  engine,
		db:      db,
		store:   store,
		control: controlSvc,
		events:  eventSvc,
		ranking: rankingSvc,
		mapper:  mapper,
	}
}

// loadContent fills the store with n questions whose answer is always "right"
// so tests can submit a known-correct choice.
func loadContent(t *testing.T, h *testHarness, n int) {
	t.Helper()

	rows := make([]domain.AnswerRow, n)
	list := make([]int, n)
	for i := range rows {
		rows[i] = domain.AnswerRow{
			RowL: i + 2, RowC: i + 2, RowR: i + 2,
			Answer:      "right",
			Distractor1: "wrong one",
			Distractor2: "wrong two",
			Question:    "which answer is right?",
		}
		list[i] = i + 2
	}

	if err := h.store.Load(rows, list, list, list); err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
}

func registerPlayer(t *testing.T, h *testHarness, nickname string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := h.db.Exec(`INSERT INTO players (id, nickname, created_at) VALUES ($1, $2, $3)`,
		id, nickname, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to insert player: %v", err)
	}
	return id
}

func TestStartSessionRequiresContent(t *testing.T) {
	h := setupEngine(t)
	playerID := registerPlayer(t, h, "alice")

	if _, err := h.engine.StartSession(context.Background(), playerID); !errors.Is(err, ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}

func TestStartSessionBlockedDuringMaintenance(t *testing.T) {
	h := setupEngine(t)
	loadContent(t, h, 5)
	playerID := registerPlayer(t, h, "alice")
	ctx := context.Background()

	if err := h.control.DisableGameplay(ctx, "reload", "op"); err != nil {
		t.Fatalf("DisableGameplay failed: %v", err)
	}
	if _, err := h.engine.StartSession(ctx, playerID); !errors.Is(err, control.ErrGameplayDisabled) {
		t.Errorf("Expected ErrGameplayDisabled, got %v", err)
	}

	if err := h.control.EnableGameplay(ctx, "op"); err != nil {
		t.Fatalf("EnableGameplay failed: %v", err)
	}
	if _, err := h.engine.StartSession(ctx, playerID); err != nil {
		t.Errorf("StartSession failed after re-enable: %v", err)
	}
}

func TestFullRound(t *testing.T) {
	h := setupEngine(t)
	loadContent(t, h, 6)
	playerID := registerPlayer(t, h, "alice")
	ctx := context.Background()

	session, err := h.engine.StartSession(ctx, playerID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	spin, err := h.engine.Spin(ctx, session.ID)
	if err != nil {
		t.Fatalf("Spin failed: %v", err)
	}

	if spin.Question != "which answer is right?" {
		t.Errorf("Question = %q", spin.Question)
	}
	if spin.Round != 1 {
		t.Errorf("Round = %d, want 1", spin.Round)
	}
	if len(spin.Choices) != 3 {
		t.Fatalf("Expected 3 choices, got %d", len(spin.Choices))
	}
	if len(spin.Positions) != 3 {
		t.Fatalf("Expected 3 reel positions, got %d", len(spin.Positions))
	}
	if spin.IntervalMS != 50 {
		t.Errorf("IntervalMS = %d, want 50", spin.IntervalMS)
	}

	// Each reported position must map back to a row present in the store.
	for _, r := range domain.Reels {
		pos, ok := spin.Positions[r.String()]
		if !ok {
			t.Fatalf("Missing position for reel %s", r)
		}
		row, err := h.mapper.RowForPosition(pos, h.store.SymbolRows(r))
		if err != nil {
			t.Fatalf("RowForPosition failed: %v", err)
		}

		stop, err := h.engine.ConfirmStop(ctx, session.ID, r, pos-7) // a little drift
		if err != nil {
			t.Fatalf("ConfirmStop failed: %v", err)
		}
		if stop.Row != row {
			t.Errorf("Reel %s: confirmed row %d, want %d", r, stop.Row, row)
		}
	}

	answer, err := h.engine.Answer(ctx, session.ID, "right")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !answer.IsCorrect {
		t.Error("Correct submission judged wrong")
	}
	if answer.CorrectAnswer != "right" {
		t.Errorf("CorrectAnswer = %q", answer.CorrectAnswer)
	}
	if answer.Score != ranking.PointsPerCorrect || answer.CorrectCount != 1 {
		t.Errorf("Score = %d, CorrectCount = %d", answer.Score, answer.CorrectCount)
	}

	updated, err := h.engine.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if updated.RoundsPlayed != 1 || updated.CorrectCount != 1 {
		t.Errorf("Session = %+v", updated)
	}
}

func TestAnswerWrongSubmission(t *testing.T) {
	h := setupEngine(t)
	loadContent(t, h, 6)
	playerID := registerPlayer(t, h, "bob")
	ctx := context.Background()

	session, err := h.engine.StartSession(ctx, playerID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, err := h.engine.Spin(ctx, session.ID); err != nil {
		t.Fatalf("Spin failed: %v", err)
	}

	answer, err := h.engine.Answer(ctx, session.ID, "wrong one")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer.IsCorrect {
		t.Error("Wrong submission judged correct")
	}
	if answer.CorrectAnswer != "right" {
		t.Errorf("CorrectAnswer = %q, want revealed answer", answer.CorrectAnswer)
	}
	if answer.Score != 0 {
		t.Errorf("Score = %d, want 0", answer.Score)
	}
}

func TestAnswerWithoutActiveQuestion(t *testing.T) {
	h := setupEngine(t)
	loadContent(t, h, 6)
	playerID := registerPlayer(t, h, "carol")
	ctx := context.Background()

	session, err := h.engine.StartSession(ctx, playerID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// No spin yet: the submission judges false without revealing anything
	// and without erroring out.
	answer, err := h.engine.Answer(ctx, session.ID, "right")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer.IsCorrect || answer.CorrectAnswer != "" {
		t.Errorf("Result = %+v, want graceful miss", answer)
	}

	// A second answer after a judged round behaves the same way.
	if _, err := h.engine.Spin(ctx, session.ID); err != nil {
		t.Fatalf("Spin failed: %v", err)
	}
	if _, err := h.engine.Answer(ctx, session.ID, "right"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	answer, err = h.engine.Answer(ctx, session.ID, "right")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer.IsCorrect || answer.CorrectAnswer != "" {
		t.Errorf("Stale answer result = %+v, want graceful miss", answer)
	}
}

func TestSpinAvoidsRecentQuestions(t *testing.T) {
	h := setupEngine(t)
	loadContent(t, h, 6)
	playerID := registerPlayer(t, h, "dave")
	ctx := context.Background()

	session, err := h.engine.StartSession(ctx, playerID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Rows are distinguishable by their reel references. Track the last
	// three picks through the left reel position.
	var recent []int
	for i := 0; i < 30; i++ {
		spin, err := h.engine.Spin(ctx, session.ID)
		if err != nil {
			t.Fatalf("Spin %d failed: %v", i, err)
		}
		row, err := h.mapper.RowForPosition(spin.Positions[domain.ReelLeft.String()], h.store.SymbolRows(domain.ReelLeft))
		if err != nil {
			t.Fatalf("RowForPosition failed: %v", err)
		}

		for _, r := range recent {
			if r == row {
				t.Fatalf("Spin %d repeated recently used row %d", i, row)
			}
		}

		recent = append(recent, row)
		if len(recent) > question.DefaultHistorySize {
			recent = recent[1:]
		}

		if _, err := h.engine.Answer(ctx, session.ID, "right"); err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
	}
}

func TestEndSessionRecordsRanking(t *testing.T) {
	h := setupEngine(t)
	loadContent(t, h, 6)
	playerID := registerPlayer(t, h, "erin")
	ctx := context.Background()

	session, err := h.engine.StartSession(ctx, playerID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := h.engine.Spin(ctx, session.ID); err != nil {
			t.Fatalf("Spin failed: %v", err)
		}
		if _, err := h.engine.Answer(ctx, session.ID, "right"); err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
	}

	ended, err := h.engine.EndSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if ended.Status != domain.SessionCompleted || ended.EndedAt == nil {
		t.Errorf("Ended session = %+v", ended)
	}
	if ended.Score != 3*ranking.PointsPerCorrect {
		t.Errorf("Score = %d, want %d", ended.Score, 3*ranking.PointsPerCorrect)
	}

	top, err := h.ranking.Top(ctx, 10)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}
	if len(top) != 1 || top[0].Nickname != "erin" || top[0].Score != ended.Score {
		t.Errorf("Leaderboard = %+v", top)
	}

	// The session is gone: further rounds are rejected.
	if _, err := h.engine.Spin(ctx, session.ID); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("Expected ErrSessionNotActive, got %v", err)
	}
	if _, err := h.engine.EndSession(ctx, session.ID); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("Expected ErrSessionNotActive on double end, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	h := setupEngine(t)

	if _, err := h.engine.GetSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestLoadWorkbook(t *testing.T) {
	h := setupEngine(t)
	ctx := context.Background()

	path := t.TempDir() + "/quiz.xlsx"
	buildWorkbookFile(t, path)

	n, err := h.engine.LoadWorkbook(ctx, path)
	if err != nil {
		t.Fatalf("LoadWorkbook failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Loaded %d questions, want 1", n)
	}
	if !h.engine.ContentReady() {
		t.Error("Engine should report content ready")
	}

	counts, err := h.events.CountByType(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountByType failed: %v", err)
	}
	if counts[events.EventQuestionsLoaded] != 1 {
		t.Errorf("questions_loaded count = %d, want 1", counts[events.EventQuestionsLoaded])
	}

	t.Run("InvalidStructureRejected", func(t *testing.T) {
		bad := t.TempDir() + "/bad.xlsx"
		f := excelize.NewFile()
		if err := f.SaveAs(bad); err != nil {
			t.Fatalf("SaveAs failed: %v", err)
		}
		if _, err := h.engine.LoadWorkbook(ctx, bad); err == nil {
			t.Error("Expected error loading a structurally invalid workbook")
		}
		// Previous content survives a failed load.
		if !h.engine.ContentReady() {
			t.Error("Engine lost content after failed load")
		}
	})
}

func buildWorkbookFile(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()

	for _, sheet := range workbook.RequiredSheets {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet failed: %v", err)
		}
	}

	set := func(sheet, cell string, v interface{}) {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("SetCellValue failed: %v", err)
		}
	}

	for _, sheet := range []string{workbook.SheetQueL, workbook.SheetQueC, workbook.SheetQueR} {
		set(sheet, "A1", "type")
		set(sheet, "B1", "question")
		set(sheet, "A2", 1)
		set(sheet, "B2", "fragment")
	}
	for i, h := range []string{"row_L", "row_C", "row_R", "ans", "lie_answer1", "lie_answer2", "lie_answer3", "question"} {
		set(workbook.SheetAns, string(rune('A'+i))+"1", h)
	}
	set(workbook.SheetAns, "A2", 2)
	set(workbook.SheetAns, "B2", 2)
	set(workbook.SheetAns, "C2", 2)
	set(workbook.SheetAns, "D2", "yes")
	set(workbook.SheetAns, "E2", "no")
	set(workbook.SheetAns, "F2", "maybe")
	set(workbook.SheetAns, "H2", "fragmentfragmentfragment")

	set(workbook.SheetLC, "A1", "type_L")
	set(workbook.SheetLC, "B1", "type_C")
	set(workbook.SheetLR, "A1", "type_L")
	set(workbook.SheetLR, "B1", "type_R")
	set(workbook.SheetCR, "A1", "type_C")
	set(workbook.SheetCR, "B1", "type_R")

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
