package types

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("cafe not found")
	ErrNoCafes       = errors.New("no cafes in store")
	ErrDuplicateName = errors.New("cafe name already exists")
	ErrInvalidID     = errors.New("invalid cafe id")
)

// Cafe is the single persisted entity. Nullable columns are pointers so that
// an absent form field is stored and serialized as null.
type Cafe struct {
	ID           int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string  `json:"name" gorm:"size:250;uniqueIndex;not null"`
	MapURL       *string `json:"map_url" gorm:"size:500"`
	ImgURL       *string `json:"img_url" gorm:"size:500"`
	Location     *string `json:"location" gorm:"size:250;index"`
	Seats        *string `json:"seats" gorm:"size:250"`
	HasToilet    *bool   `json:"has_toilet"`
	HasWifi      *bool   `json:"has_wifi"`
	HasSockets   *bool   `json:"has_sockets"`
	CanTakeCalls *bool   `json:"can_take_calls"`
	CoffeePrice  *string `json:"coffee_price" gorm:"size:250"`
}

func (Cafe) TableName() string {
	return "cafe"
}

type DataStore interface {
	GetCafes(ctx context.Context) ([]Cafe, error)
	GetRandomCafe(ctx context.Context) (Cafe, error)
	GetCafeByLocation(ctx context.Context, location string) (Cafe, error)
	AddCafe(ctx context.Context, cafe *Cafe) error
	UpdateCafePrice(ctx context.Context, id int64, price *string) (Cafe, error)
	DeleteCafe(ctx context.Context, id int64) error
	CountCafes(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// CafeIndex is a secondary lookup structure mirrored from a DataStore.
type CafeIndex interface {
	FindByLocation(ctx context.Context, location string) (Cafe, error)
	Put(ctx context.Context, cafe Cafe) error
	Remove(ctx context.Context, id int64) error
	Reindex(ctx context.Context, cafes []Cafe) error
}

func String(s string) *string {
	return &s
}

func Bool(b bool) *bool {
	return &b
}
