package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Document is the generic row backing every collection record. The full
// record JSON lives in Data; id, code and isActive are mirrored into
// columns for lookups and the (collection, code) unique constraint.
type Document struct {
	ID         string  `gorm:"type:uuid;primaryKey"`
	Collection string  `gorm:"size:64;index;uniqueIndex:idx_collection_code"`
	Code       *string `gorm:"size:128;uniqueIndex:idx_collection_code"`
	IsActive   bool
	Data       []byte `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Account is the users table.
type Account struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	FullName  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Gorm is the postgres-backed store for local devserver runs.
type Gorm struct {
	db *gorm.DB
}

// ConnectGorm opens the database and migrates the schema.
func ConnectGorm(host, port, user, password, dbname, sslmode string) (*Gorm, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		host, user, password, dbname, port, sslmode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Document{}, &Account{}); err != nil {
		return nil, err
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) List(ctx context.Context, collection string) ([]Record, error) {
	var docs []Document
	if err := g.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *Gorm) Get(ctx context.Context, collection, key string) (Record, error) {
	doc, err := g.find(ctx, collection, key)
	if err != nil {
		return nil, err
	}
	return doc.record()
}

func (g *Gorm) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	stored := cloneRecord(rec)
	if _, ok := stored["id"].(string); !ok {
		stored["id"] = uuid.NewString()
	}
	if _, ok := stored["isActive"]; !ok {
		stored["isActive"] = true
	}
	now := time.Now().UTC()
	stored["createdAt"] = now.Format(time.RFC3339)

	doc := Document{
		ID:         stored["id"].(string),
		Collection: collection,
		IsActive:   stored["isActive"] == true,
		CreatedAt:  now,
	}
	if code := codeOf(stored); code != "" {
		doc.Code = &code
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	doc.Data = data

	if err := g.db.WithContext(ctx).Create(&doc).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return stored, nil
}

func (g *Gorm) Update(ctx context.Context, collection, key string, changes Record) (Record, error) {
	doc, err := g.find(ctx, collection, key)
	if err != nil {
		return nil, err
	}
	rec, err := doc.record()
	if err != nil {
		return nil, err
	}
	for k, v := range changes {
		if k == "id" || k == "createdAt" {
			continue
		}
		rec[k] = v
	}
	return rec, g.save(ctx, doc, rec)
}

func (g *Gorm) Toggle(ctx context.Context, collection, key string) (Record, error) {
	doc, err := g.find(ctx, collection, key)
	if err != nil {
		return nil, err
	}
	rec, err := doc.record()
	if err != nil {
		return nil, err
	}
	active, _ := rec["isActive"].(bool)
	rec["isActive"] = !active
	return rec, g.save(ctx, doc, rec)
}

func (g *Gorm) Delete(ctx context.Context, collection, key string) error {
	doc, err := g.find(ctx, collection, key)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Delete(&Document{}, "id = ?", doc.ID).Error
}

func (g *Gorm) UserByEmail(ctx context.Context, email string) (*User, error) {
	var acc Account
	err := g.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &User{
		ID:        acc.ID,
		Email:     acc.Email,
		FullName:  acc.FullName,
		Password:  acc.Password,
		Role:      acc.Role,
		Active:    acc.Active,
		CreatedAt: acc.CreatedAt,
	}, nil
}

func (g *Gorm) SaveUser(ctx context.Context, u *User) error {
	acc := Account{
		ID:       u.ID,
		Email:    strings.ToLower(u.Email),
		FullName: u.FullName,
		Password: u.Password,
		Role:     u.Role,
		Active:   u.Active,
	}
	if err := g.db.WithContext(ctx).Save(&acc).Error; err != nil {
		return err
	}
	u.ID = acc.ID
	return nil
}

func (g *Gorm) find(ctx context.Context, collection, key string) (*Document, error) {
	var doc Document
	err := g.db.WithContext(ctx).
		Where("collection = ? AND (id::text = ? OR code = ?)", collection, key, key).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (g *Gorm) save(ctx context.Context, doc *Document, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	doc.Data = data
	doc.IsActive = rec["isActive"] == true
	if code := codeOf(rec); code != "" {
		doc.Code = &code
	}
	return g.db.WithContext(ctx).Save(doc).Error
}

func (d *Document) record() (Record, error) {
	var rec Record
	if err := json.Unmarshal(d.Data, &rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return rec, nil
}
