package app

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"civicprofile/domain/core"
	"civicprofile/domain/dataset"
	"civicprofile/internal/config"
	"civicprofile/internal/errors"
	"civicprofile/internal/geo"
	"civicprofile/ports"
)

// MockDatasetLoader implements ports.DatasetLoader
type MockDatasetLoader struct {
	mock.Mock
}

func (m *MockDatasetLoader) Load(ctx context.Context, req ports.LoadRequest) (*dataset.Dataset, error) {
	args := m.Called(ctx, req)
	ds, _ := args.Get(0).(*dataset.Dataset)
	return ds, args.Error(1)
}

func named(name string) interface{} {
	return mock.MatchedBy(func(req ports.LoadRequest) bool { return req.Name == name })
}

func violations(t *testing.T, name string) *dataset.Dataset {
	t.Helper()
	d := func(y, m, day int) dataset.Value { return dataset.NewDate(time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)) }
	ds, err := dataset.New(name,
		dataset.NewColumn("SR_TYPE", []dataset.Value{
			dataset.NewText("Pothole"), dataset.NewText("311 INFORMATION ONLY CALL"),
			dataset.NewText("Graffiti Removal"), dataset.NewText("Pothole"), dataset.Missing(),
		}),
		dataset.NewColumn("CREATED_DATE", []dataset.Value{
			d(2021, 3, 1), d(2022, 1, 5), d(2022, 2, 9), d(2022, 7, 4), dataset.Missing(),
		}),
		dataset.NewColumn("LONGITUDE", []dataset.Value{
			dataset.NewFloat(-87.6), dataset.NewFloat(-87.7), dataset.NewFloat(-87.65), dataset.Missing(), dataset.NewFloat(-87.6),
		}),
		dataset.NewColumn("LATITUDE", []dataset.Value{
			dataset.NewFloat(41.8), dataset.NewFloat(41.9), dataset.NewFloat(41.85), dataset.NewFloat(41.7), dataset.NewFloat(41.8),
		}),
	)
	require.NoError(t, err)
	return ds
}

func manifestOf(names ...string) *config.Manifest {
	m := &config.Manifest{}
	for _, n := range names {
		m.Datasets = append(m.Datasets, config.DatasetEntry{
			Name:           n,
			Path:           n + ".csv",
			DateColumns:    []string{"CREATED_DATE"},
			CategoryColumn: "SR_TYPE",
			ExcludeLabels:  []string{"311 INFORMATION ONLY CALL"},
			Geo: &geo.Spec{
				DateColumn:      "CREATED_DATE",
				LongitudeColumn: "LONGITUDE",
				LatitudeColumn:  "LATITUDE",
				CategoryColumn:  "SR_TYPE",
			},
		})
	}
	return m
}

func TestReportService_Run_ManifestOrder(t *testing.T) {
	loader := new(MockDatasetLoader)
	loader.On("Load", mock.Anything, named("first")).After(60*time.Millisecond).Return(violations(t, "first"), nil)
	loader.On("Load", mock.Anything, named("second")).After(20*time.Millisecond).Return(violations(t, "second"), nil)
	loader.On("Load", mock.Anything, named("third")).Return(violations(t, "third"), nil)

	svc := NewReportService(loader, nil, nil, ReportSettings{MaxParallel: 3}, nil)
	doc, err := svc.Run(context.Background(), manifestOf("first", "second", "third"))
	require.NoError(t, err)

	require.Len(t, doc.Profiles, 3)
	assert.Equal(t, "first", doc.Profiles[0].Dataset)
	assert.Equal(t, "second", doc.Profiles[1].Dataset)
	assert.Equal(t, "third", doc.Profiles[2].Dataset)
	assert.False(t, doc.RunID.IsEmpty())
	loader.AssertExpectations(t)

	p := doc.Profiles[0]
	assert.Equal(t, 5, p.Rows)
	require.NotNil(t, p.Frequency)
	assert.Equal(t, 50, p.Frequency.Limit)
	assert.Equal(t, 3, p.Frequency.Counted)
	assert.Equal(t, "Pothole", p.Frequency.Entries[0].Label)
	assert.Equal(t, 2, p.Frequency.Entries[0].Count)

	require.NotNil(t, p.Points)
	assert.Equal(t, 2022, p.Points.Year)
	assert.Len(t, p.Points.Points, 2)
	assert.Equal(t, 1, p.Points.Dropped)
}

func TestReportService_Run_FailureNamesDataset(t *testing.T) {
	loader := new(MockDatasetLoader)
	loader.On("Load", mock.Anything, named("good")).Return(violations(t, "good"), nil).Maybe()
	loader.On("Load", mock.Anything, named("broken")).Return(nil, stderrors.New("file not found"))

	svc := NewReportService(loader, nil, nil, ReportSettings{MaxParallel: 1}, nil)
	_, err := svc.Run(context.Background(), manifestOf("broken", "good"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, errors.CodeLoadError, errors.GetCode(err))
}

func TestReportService_Run_SchemaError(t *testing.T) {
	loader := new(MockDatasetLoader)
	loader.On("Load", mock.Anything, named("renamed")).Return(violations(t, "renamed"), nil)

	m := manifestOf("renamed")
	m.Datasets[0].CategoryColumn = "VIOLATION ORDINANCE"

	svc := NewReportService(loader, nil, nil, ReportSettings{MaxParallel: 2}, nil)
	_, err := svc.Run(context.Background(), m)

	require.Error(t, err)
	assert.True(t, core.IsSchemaError(err))
	assert.Equal(t, errors.CodeSchemaError, errors.GetCode(err))
	assert.Contains(t, err.Error(), "renamed")
}

// countingLoader tracks how many loads run at once
type countingLoader struct {
	active, peak int32
	ds           *dataset.Dataset
}

func (c *countingLoader) Load(ctx context.Context, req ports.LoadRequest) (*dataset.Dataset, error) {
	n := atomic.AddInt32(&c.active, 1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if n <= p || atomic.CompareAndSwapInt32(&c.peak, p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&c.active, -1)
	return c.ds, nil
}

func TestReportService_Run_RespectsParallelLimit(t *testing.T) {
	loader := &countingLoader{ds: violations(t, "any")}
	svc := NewReportService(loader, nil, nil, ReportSettings{MaxParallel: 2}, nil)

	doc, err := svc.Run(context.Background(), manifestOf("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	assert.Len(t, doc.Profiles, 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&loader.peak), int32(2))
}

func TestReportService_QueryEntryWithoutDatabase(t *testing.T) {
	svc := NewReportService(new(MockDatasetLoader), nil, nil, ReportSettings{}, nil)
	entry := config.DatasetEntry{Name: "requests", Query: "SELECT 1"}

	_, err := svc.ProfileEntry(context.Background(), entry)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestReportService_QueryEntryUsesQueryLoader(t *testing.T) {
	files := new(MockDatasetLoader)
	queries := new(MockDatasetLoader)
	queries.On("Load", mock.Anything, named("requests")).Return(violations(t, "requests"), nil)

	svc := NewReportService(files, queries, nil, ReportSettings{}, nil)
	entry := config.DatasetEntry{Name: "requests", Title: "Requests", Query: "SELECT *", CategoryColumn: "SR_TYPE"}

	p, err := svc.ProfileEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "Requests", p.Title)
	queries.AssertExpectations(t)
	files.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestLoadRequest_RowLimitOverride(t *testing.T) {
	entry := config.DatasetEntry{Name: "a", Path: "a.csv", Sheet: "Data", RowLimit: 10}
	assert.Equal(t, 10, LoadRequest(entry, 500).RowLimit)

	entry.RowLimit = 0
	req := LoadRequest(entry, 500)
	assert.Equal(t, 500, req.RowLimit)
	assert.Equal(t, "Data", req.Sheet)
	assert.False(t, req.IsQuery())
}

func TestProfileOptions_Filters(t *testing.T) {
	ds := violations(t, "filters")

	entry := config.DatasetEntry{
		CategoryColumn: "SR_TYPE",
		Contains:       &config.KeywordFilter{Keyword: "pothole", Only: true},
	}
	opts := ProfileOptions(entry, 50)
	require.NotNil(t, opts.Exclude)
	assert.False(t, opts.Exclude(ds.Row(0)))
	assert.True(t, opts.Exclude(ds.Row(2)))

	entry.Contains.CaseSensitive = true
	opts = ProfileOptions(entry, 50)
	assert.True(t, opts.Exclude(ds.Row(0)))

	assert.Nil(t, ProfileOptions(config.DatasetEntry{CategoryColumn: "SR_TYPE"}, 50).Exclude)
	assert.Equal(t, 7, ProfileOptions(config.DatasetEntry{TopN: 7}, 50).TopN)
	assert.Equal(t, 50, ProfileOptions(config.DatasetEntry{}, 50).TopN)
}
