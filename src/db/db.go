package db

import (
	"CafeAPI/src/metrics"
	"CafeAPI/src/types"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SQLiteStore struct {
	DB *gorm.DB
	// intn picks the random-sample offset; replaced in tests.
	intn func(n int64) int64
}

// NewSQLiteStore opens (creating if needed) the database file at path and
// migrates the cafe table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	gdb, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err = gdb.AutoMigrate(&types.Cafe{}); err != nil {
		return nil, fmt.Errorf("migrate cafe table: %w", err)
	}

	return &SQLiteStore{DB: gdb, intn: rand.Int63n}, nil
}

// sqliteDSN appends the connection pragmas to path, keeping any query
// string it already carries.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) GetCafes(ctx context.Context) ([]types.Cafe, error) {
	defer observe("list", time.Now())

	cafes := []types.Cafe{}
	if err := s.DB.WithContext(ctx).Order("id").Find(&cafes).Error; err != nil {
		return nil, storeError("list", err)
	}
	return cafes, nil
}

func (s *SQLiteStore) CountCafes(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&types.Cafe{}).Count(&count).Error; err != nil {
		return 0, storeError("count", err)
	}
	return count, nil
}

// GetRandomCafe returns a uniformly chosen row, or types.ErrNoCafes when the
// table is empty.
func (s *SQLiteStore) GetRandomCafe(ctx context.Context) (types.Cafe, error) {
	defer observe("random", time.Now())

	count, err := s.CountCafes(ctx)
	if err != nil {
		return types.Cafe{}, err
	}
	if count == 0 {
		return types.Cafe{}, types.ErrNoCafes
	}

	var cafe types.Cafe
	err = s.DB.WithContext(ctx).Order("id").Offset(int(s.intn(count))).Limit(1).Take(&cafe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// rows were deleted between the count and the read
		return types.Cafe{}, types.ErrNoCafes
	}
	if err != nil {
		return types.Cafe{}, storeError("random", err)
	}
	return cafe, nil
}

// GetCafeByLocation returns the lowest-id cafe whose location equals location.
func (s *SQLiteStore) GetCafeByLocation(ctx context.Context, location string) (types.Cafe, error) {
	defer observe("search", time.Now())

	var cafe types.Cafe
	err := s.DB.WithContext(ctx).Where("location = ?", location).First(&cafe).Error
	if err != nil {
		return types.Cafe{}, storeError("search", err)
	}
	return cafe, nil
}

func (s *SQLiteStore) GetCafe(ctx context.Context, id int64) (types.Cafe, error) {
	var cafe types.Cafe
	if err := s.DB.WithContext(ctx).First(&cafe, id).Error; err != nil {
		return types.Cafe{}, storeError("get", err)
	}
	return cafe, nil
}

// AddCafe inserts cafe and sets its ID.
func (s *SQLiteStore) AddCafe(ctx context.Context, cafe *types.Cafe) error {
	defer observe("create", time.Now())

	cafe.ID = 0
	if err := s.DB.WithContext(ctx).Create(cafe).Error; err != nil {
		return storeError("create", err)
	}
	return nil
}

// UpdateCafePrice overwrites coffee_price only and returns the updated row.
func (s *SQLiteStore) UpdateCafePrice(ctx context.Context, id int64, price *string) (types.Cafe, error) {
	defer observe("update", time.Now())

	cafe, err := s.GetCafe(ctx, id)
	if err != nil {
		return types.Cafe{}, err
	}

	err = s.DB.WithContext(ctx).Model(&types.Cafe{}).Where("id = ?", id).Update("coffee_price", price).Error
	if err != nil {
		return types.Cafe{}, storeError("update", err)
	}
	cafe.CoffeePrice = price
	return cafe, nil
}

func (s *SQLiteStore) DeleteCafe(ctx context.Context, id int64) error {
	defer observe("delete", time.Now())

	res := s.DB.WithContext(ctx).Delete(&types.Cafe{}, id)
	if res.Error != nil {
		return storeError("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// storeError maps gorm errors onto the types sentinels and counts failures.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		metrics.StoreErrors.WithLabelValues(op, "duplicate").Inc()
		return fmt.Errorf("%s: %w", op, types.ErrDuplicateName)
	default:
		metrics.StoreErrors.WithLabelValues(op, "internal").Inc()
		return fmt.Errorf("%s cafe: %w", op, err)
	}
}

func observe(op string, start time.Time) {
	metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
