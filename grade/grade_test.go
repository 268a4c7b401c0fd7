package grade

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/authority"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classID interfaces.ClassID = 101

var (
	owner    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	lecturer = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	student  = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")

	now = time.Date(2024, 12, 16, 14, 0, 0, 0, time.UTC)
)

func setup(t *testing.T, cfg Config) (*Ledger, *authority.Authority, *ledger.Ledger) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(ledger.NewManualClock(now), logger)

	auth, _, err := authority.Deploy(ctx, l, owner, logger)
	require.NoError(t, err)
	_, err = auth.RegisterUser(ctx, owner, lecturer, "LEC001", "Lecturer", "lec@example.edu", interfaces.RoleLecturer)
	require.NoError(t, err)
	_, err = auth.RegisterUser(ctx, owner, student, "STU001", "Student", "stu@example.edu", interfaces.RoleStudent)
	require.NoError(t, err)

	g, _, err := Deploy(ctx, l, owner, auth, cfg, logger)
	require.NoError(t, err)
	return g, auth, l
}

func TestDeploy(t *testing.T) {
	g, auth, _ := setup(t, Config{})
	assert.Equal(t, auth.Address(), g.Authority())
	assert.Equal(t, PendingPolicyName, g.Strategy().Name())
	assert.Equal(t, uint64(0), g.GradeCount())
}

func TestRecordAndUpdateGrade(t *testing.T) {
	g, _, _ := setup(t, Config{})
	ctx := context.Background()

	id, receipt, err := g.RecordGrade(ctx, lecturer, classID, student, "Midterm", 8550, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, interfaces.GradeRecorded{
		ID:            id,
		ClassID:       classID,
		Student:       student,
		ComponentName: "Midterm",
		Score:         8550,
		RecordedBy:    lecturer,
	}, receipt.Notifications[0].Payload)

	record, err := g.GetGrade(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(8550), record.Score)
	assert.Equal(t, uint64(10000), record.MaxScore)
	assert.Equal(t, interfaces.GradeStatusDraft, record.Status)
	assert.Equal(t, lecturer, record.RecordedBy)
	assert.Equal(t, now, record.RecordedAt)

	_, err = g.UpdateGrade(ctx, lecturer, id, 11000)
	require.ErrorIs(t, err, interfaces.ErrValidation)
	assert.EqualError(t, err, "score exceeds max score")

	record, err = g.GetGrade(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(8550), record.Score)

	receipt, err = g.UpdateGrade(ctx, lecturer, id, 9000)
	require.NoError(t, err)
	assert.Equal(t, interfaces.GradeUpdated{ID: id, OldScore: 8550, NewScore: 9000, UpdatedBy: lecturer}, receipt.Notifications[0].Payload)

	record, err = g.GetGrade(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(9000), record.Score)
}

func TestRecordGrade_Rejections(t *testing.T) {
	g, _, l := setup(t, Config{})
	ctx := context.Background()
	height := l.Height()

	_, _, err := g.RecordGrade(ctx, student, classID, student, "Midterm", 100, 100)
	require.ErrorIs(t, err, interfaces.ErrAuthorization)

	_, _, err = g.RecordGrade(ctx, lecturer, classID, student, "Midterm", 101, 100)
	require.ErrorIs(t, err, interfaces.ErrValidation)

	assert.Equal(t, height, l.Height())
	assert.Equal(t, uint64(0), g.GradeCount())
	assert.Empty(t, g.GetClassGrades(classID))

	_, _, err = g.RecordGrade(ctx, lecturer, classID, student, "Attendance bonus", 0, 0)
	require.NoError(t, err)
}

func TestApproveGrade(t *testing.T) {
	g, _, _ := setup(t, Config{})
	ctx := context.Background()

	id, _, err := g.RecordGrade(ctx, lecturer, classID, student, "Midterm", 8550, 10000)
	require.NoError(t, err)

	_, err = g.ApproveGrade(ctx, lecturer, id)
	require.ErrorIs(t, err, interfaces.ErrAuthorization)
	assert.EqualError(t, err, "caller is not admin")

	receipt, err := g.ApproveGrade(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.GradeApproved{ID: id, ApprovedBy: owner, ApprovedAt: now}, receipt.Notifications[0].Payload)

	record, err := g.GetGrade(id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.GradeStatusApproved, record.Status)
	assert.Equal(t, owner, record.ApprovedBy)

	_, err = g.ApproveGrade(ctx, owner, id)
	require.ErrorIs(t, err, interfaces.ErrState)

	_, err = g.UpdateGrade(ctx, lecturer, id, 9000)
	require.ErrorIs(t, err, interfaces.ErrState)
	assert.EqualError(t, err, "grade already approved")

	record, err = g.GetGrade(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(8550), record.Score)
}

func TestGradeNotFound(t *testing.T) {
	g, _, _ := setup(t, Config{})
	ctx := context.Background()

	_, err := g.GetGrade(7)
	require.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = g.UpdateGrade(ctx, lecturer, 7, 1)
	require.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = g.ApproveGrade(ctx, owner, 7)
	require.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.EqualError(t, err, "grade not found")
}

func TestIndexes(t *testing.T) {
	g, _, _ := setup(t, Config{})
	ctx := context.Background()

	_, _, err := g.RecordGrade(ctx, lecturer, classID, student, "Midterm", 80, 100)
	require.NoError(t, err)
	_, _, err = g.RecordGrade(ctx, lecturer, classID, lecturer, "Midterm", 70, 100)
	require.NoError(t, err)
	_, _, err = g.RecordGrade(ctx, lecturer, 202, student, "Midterm", 90, 100)
	require.NoError(t, err)
	_, _, err = g.RecordGrade(ctx, lecturer, classID, student, "Final", 60, 100)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 4}, g.GetStudentGrades(classID, student))
	assert.Equal(t, []uint64{1, 2, 4}, g.GetClassGrades(classID))
	assert.Equal(t, []uint64{3}, g.GetClassGrades(202))
	assert.Equal(t, uint64(4), g.GradeCount())
}

func TestCalculateFinalGrade(t *testing.T) {
	ctx := context.Background()

	t.Run("pending policy", func(t *testing.T) {
		g, _, _ := setup(t, Config{})
		id, _, err := g.RecordGrade(ctx, lecturer, classID, student, "Midterm", 8550, 10000)
		require.NoError(t, err)
		_, err = g.ApproveGrade(ctx, owner, id)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), g.CalculateFinalGrade(classID, student))
	})

	t.Run("weighted by max score", func(t *testing.T) {
		g, _, _ := setup(t, Config{Strategy: WeightedByMaxScore{}})
		midterm, _, err := g.RecordGrade(ctx, lecturer, classID, student, "Midterm", 30, 40)
		require.NoError(t, err)
		final, _, err := g.RecordGrade(ctx, lecturer, classID, student, "Final", 45, 60)
		require.NoError(t, err)
		_, _, err = g.RecordGrade(ctx, lecturer, classID, student, "Project", 0, 100)
		require.NoError(t, err)

		assert.Equal(t, uint64(0), g.CalculateFinalGrade(classID, student))

		_, err = g.ApproveGrade(ctx, owner, midterm)
		require.NoError(t, err)
		_, err = g.ApproveGrade(ctx, owner, final)
		require.NoError(t, err)

		// The unapproved project is ignored: (30+45)/(40+60).
		assert.Equal(t, uint64(7500), g.CalculateFinalGrade(classID, student))
		assert.Equal(t, uint64(0), g.CalculateFinalGrade(202, student))
	})
}

func TestStrategyByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", PendingPolicyName, false},
		{PendingPolicyName, PendingPolicyName, false},
		{WeightedByMaxScoreName, WeightedByMaxScoreName, false},
		{"median", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := StrategyByName(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestWeightedByMaxScore_ZeroMax(t *testing.T) {
	assert.Equal(t, uint64(0), WeightedByMaxScore{}.FinalGrade([]interfaces.GradeRecord{{Score: 0, MaxScore: 0}}))
	assert.Equal(t, uint64(0), WeightedByMaxScore{}.FinalGrade(nil))
}

func TestWeightedByMaxScore_LargeValues(t *testing.T) {
	const maxUint = math.MaxUint64
	tests := []struct {
		name     string
		approved []interfaces.GradeRecord
		want     uint64
	}{
		{"perfect score at 1<<62", []interfaces.GradeRecord{{Score: 1 << 62, MaxScore: 1 << 62}}, 10000},
		{"perfect score at max uint64", []interfaces.GradeRecord{{Score: maxUint, MaxScore: maxUint}}, 10000},
		{"half of max uint64", []interfaces.GradeRecord{{Score: maxUint / 2, MaxScore: maxUint}}, 4999},
		{"totals beyond uint64", []interfaces.GradeRecord{
			{Score: 1 << 63, MaxScore: 1 << 63},
			{Score: 0, MaxScore: 1 << 63},
		}, 5000},
		{"many saturated components", []interfaces.GradeRecord{
			{Score: maxUint, MaxScore: maxUint},
			{Score: maxUint, MaxScore: maxUint},
			{Score: maxUint, MaxScore: maxUint},
		}, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeightedByMaxScore{}.FinalGrade(tt.approved))
		})
	}
}

func TestGradeBounds_LargeValues(t *testing.T) {
	const maxUint = math.MaxUint64
	tests := []struct {
		name      string
		score     uint64
		maxScore  uint64
		update    uint64
		recordErr bool
		updateErr bool
	}{
		{"score equals max uint64", maxUint, maxUint, maxUint - 1, false, false},
		{"score above max score", maxUint, maxUint - 1, 0, true, false},
		{"update above max score", 1 << 62, 1 << 62, 1<<62 + 1, false, true},
		{"update to max uint64 with smaller max", 0, maxUint - 1, maxUint, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, _ := setup(t, Config{Strategy: WeightedByMaxScore{}})
			ctx := context.Background()

			id, _, err := g.RecordGrade(ctx, lecturer, classID, student, "Thesis", tt.score, tt.maxScore)
			if tt.recordErr {
				require.ErrorIs(t, err, interfaces.ErrValidation)
				assert.Equal(t, uint64(0), g.GradeCount())
				return
			}
			require.NoError(t, err)

			_, err = g.UpdateGrade(ctx, lecturer, id, tt.update)
			record, getErr := g.GetGrade(id)
			require.NoError(t, getErr)
			if tt.updateErr {
				require.ErrorIs(t, err, interfaces.ErrValidation)
				assert.Equal(t, tt.score, record.Score)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.update, record.Score)
		})
	}
}

func TestCalculateFinalGrade_PerfectScoreOnLargeScale(t *testing.T) {
	g, _, _ := setup(t, Config{Strategy: WeightedByMaxScore{}})
	ctx := context.Background()

	for _, component := range []string{"Midterm", "Final"} {
		id, _, err := g.RecordGrade(ctx, lecturer, classID, student, component, 1<<63, 1<<63)
		require.NoError(t, err)
		_, err = g.ApproveGrade(ctx, owner, id)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(10000), g.CalculateFinalGrade(classID, student))
}
