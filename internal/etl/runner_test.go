package etl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"starload/internal/etl"
	"starload/internal/schema"
	"starload/internal/storage"
	"starload/internal/storage/mocks"
	_ "starload/internal/storage/sqlite"
)

func writeCSV(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func mockRunner(repo storage.Repository, dir string) *etl.Runner {
	return &etl.Runner{
		Catalog: schema.Retail(),
		Open:    func(context.Context) (storage.Repository, error) { return repo, nil },
		DataDir: dir,
	}
}

func TestRun_ConnectionFailure(t *testing.T) {
	t.Parallel()

	r := &etl.Runner{
		Catalog: schema.Retail(),
		Open: func(context.Context) (storage.Repository, error) {
			return nil, errors.New("login failed")
		},
	}
	rep, err := r.RunDefault(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, etl.ErrConnection)
	assert.Contains(t, err.Error(), "login failed")
	assert.Empty(t, rep.Jobs)
	assert.NotEqual(t, uuid.Nil, rep.RunID)

	assert.True(t, rep.Failed(), "an unreachable warehouse is a failed run")
	assert.ErrorIs(t, rep.Err(), etl.ErrConnection)
	assert.Contains(t, rep.Error, "login failed")
	assert.False(t, rep.Finished.IsZero())
}

func TestRun_NoOpenerFailsReport(t *testing.T) {
	t.Parallel()

	rep, err := (&etl.Runner{Catalog: schema.Retail()}).RunDefault(context.Background())
	require.ErrorIs(t, err, etl.ErrConnection)
	assert.True(t, rep.Failed())
	assert.NotEmpty(t, rep.Error)
}

func TestRun_AppendsAndClosesRepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "dim-store-csv.csv", "store_id,store_name,city,state,country\n1,Main, Austin ,tx,USA\n2,,,,\n")

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)

	cols := []string{"store_id", "store_name", "city", "state", "country"}
	repo.EXPECT().
		CopyFrom(gomock.Any(), "DIM_STORE", cols, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
			require.Len(t, rows, 2)
			assert.Equal(t, []any{int64(1), "Main", "Austin", "TX", "USA"}, rows[0])
			assert.Equal(t, []any{int64(2), "Unknown", "Unknown", "Unknown", "Unknown"}, rows[1])
			return int64(len(rows)), nil
		})
	repo.EXPECT().Close().Times(1)

	rep, err := mockRunner(repo, dir).Run(context.Background(), []etl.Job{{File: "dim-store-csv.csv", Table: "DIM_STORE"}})
	require.NoError(t, err)
	require.Len(t, rep.Jobs, 1)

	j := rep.Jobs[0]
	assert.Equal(t, etl.StatusOK, j.Status)
	assert.Equal(t, 2, j.Extracted)
	assert.Equal(t, int64(2), j.Load.Written)
	assert.False(t, rep.Failed())
	assert.NoError(t, rep.Err())
}

func TestRun_JobDedupOverridesTablePolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "stores.csv", "store_id,store_name,city,state,country\n1,First,Austin,TX,USA\n1,Second,Austin,TX,USA\n")

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().
		CopyFrom(gomock.Any(), "DIM_STORE", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
			require.Len(t, rows, 1)
			assert.Equal(t, "First", rows[0][1])
			return 1, nil
		})
	repo.EXPECT().Close()

	rep, err := mockRunner(repo, dir).Run(context.Background(), []etl.Job{
		{File: "stores.csv", Table: "DIM_STORE", Dedup: schema.DedupKeepFirst},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Jobs[0].Transform.DroppedDuplicates)
}

func TestRun_UnknownDedupPolicyFailsJob(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Close()

	rep, err := mockRunner(repo, t.TempDir()).Run(context.Background(), []etl.Job{
		{File: "stores.csv", Table: "DIM_STORE", Dedup: "keep-best"},
	})
	require.NoError(t, err)
	assert.Equal(t, etl.StatusFailed, rep.Jobs[0].Status)
	assert.Contains(t, rep.Jobs[0].Error, "keep-best")
}

// A failing job is recorded and the chain keeps going.
func TestRun_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "dim-store-csv.csv", "store_id,store_name,city,state,country\n1,Main,Austin,TX,USA\n")
	writeCSV(t, dir, "dim-date-csv.csv", "")
	writeCSV(t, dir, "dim-customer-csv.csv", "customer_id,customer_name,email\n7,Ada,ADA@EXAMPLE.COM\n")

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().
		CopyFrom(gomock.Any(), "DIM_STORE", gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("disk full"))
	repo.EXPECT().
		CopyFrom(gomock.Any(), "DIM_CUSTOMER", gomock.Any(), gomock.Any()).
		Return(int64(1), nil)
	repo.EXPECT().Close()

	rep, err := mockRunner(repo, dir).Run(context.Background(), []etl.Job{
		{File: "dim-store-csv.csv", Table: "DIM_STORE"},
		{File: "dim-date-csv.csv", Table: "DIM_DATE"},
		{File: "dim-product-csv.csv", Table: "DIM_PRODUCT"},
		{File: "dim-customer-csv.csv", Table: "DIM_CUSTOMER"},
	})
	require.NoError(t, err)
	require.Len(t, rep.Jobs, 4)

	assert.Equal(t, etl.StatusFailed, rep.Jobs[0].Status)
	assert.ErrorIs(t, rep.Jobs[0].Err, storage.ErrWrite)
	assert.Equal(t, etl.StatusFailed, rep.Jobs[1].Status)
	assert.ErrorIs(t, rep.Jobs[1].Err, etl.ErrEmptyFile)
	assert.Equal(t, etl.StatusSkipped, rep.Jobs[2].Status)
	assert.Equal(t, etl.StatusOK, rep.Jobs[3].Status)

	assert.True(t, rep.Failed())
	joined := rep.Err()
	assert.ErrorIs(t, joined, storage.ErrWrite)
	assert.ErrorIs(t, joined, etl.ErrEmptyFile)
	assert.NotErrorIs(t, joined, etl.ErrFileNotFound)

	s := rep.Summary()
	assert.Equal(t, etl.Summary{OK: 1, Skipped: 1, Failed: 2, Written: 1}, s)
}

func TestRun_MissingColumnsWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "dim-date-csv.csv", "date_id,year\n20230101,2023\n")

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Close()

	rep, err := mockRunner(repo, dir).Run(context.Background(), []etl.Job{{File: "dim-date-csv.csv", Table: "DIM_DATE"}})
	require.NoError(t, err)

	j := rep.Jobs[0]
	assert.Equal(t, etl.StatusFailed, j.Status)
	var mce *storage.MissingColumnsError
	require.ErrorAs(t, j.Err, &mce)
	assert.Equal(t, []string{"full_date", "quarter", "month", "day", "day_of_week"}, j.Load.Missing)
	assert.Zero(t, j.Load.Written)
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := mockRunner(repo, t.TempDir()).RunDefault(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Jobs, len(schema.Retail().Jobs))
	for _, j := range rep.Jobs {
		assert.Equal(t, etl.StatusFailed, j.Status)
		assert.ErrorIs(t, j.Err, context.Canceled)
	}
}

func TestRun_UnknownTable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Close()

	rep, err := mockRunner(repo, t.TempDir()).Run(context.Background(), []etl.Job{{File: "x.csv", Table: "DIM_X"}})
	require.NoError(t, err)
	assert.Equal(t, etl.StatusFailed, rep.Jobs[0].Status)
	assert.Contains(t, rep.Jobs[0].Error, "has no table DIM_X")
}
