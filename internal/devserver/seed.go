package devserver

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/patidost/pati_admin_v1/internal/config"
	"github.com/patidost/pati_admin_v1/internal/devserver/store"
)

// SeedAdmin creates the initial back-office account unless one exists.
func SeedAdmin(ctx context.Context, st store.Store, cfg *config.Config) error {
	if _, err := st.UserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &store.User{
		Email:    cfg.AdminEmail,
		FullName: cfg.AdminFullName,
		Password: string(hashed),
		Role:     "admin",
		Active:   true,
	}
	if err := st.SaveUser(ctx, admin); err != nil {
		return err
	}
	log.Println("Seeded initial admin:", cfg.AdminEmail)
	return nil
}

// SeedSampleData loads dictionaries and a handful of entities so a fresh
// devserver has something to browse. Collections already holding records
// are left alone.
func SeedSampleData(ctx context.Context, st store.Store) error {
	seeds := map[string][]store.Record{
		"colors": {
			{"code": "BLACK", "label": "Siyah"},
			{"code": "WHITE", "label": "Beyaz"},
			{"code": "RED", "label": "Kırmızı"},
			{"code": "BROWN", "label": "Kahverengi"},
		},
		"sizes": {
			{"code": "SMALL", "label": "Küçük"},
			{"code": "MEDIUM", "label": "Orta"},
			{"code": "LARGE", "label": "Büyük"},
		},
		"genders": {
			{"code": "MALE", "label": "Erkek"},
			{"code": "FEMALE", "label": "Dişi"},
		},
		"age-groups": {
			{"code": "BABY", "label": "Yavru"},
			{"code": "ADULT", "label": "Yetişkin"},
			{"code": "SENIOR", "label": "Yaşlı"},
		},
		"source-types": {
			{"code": "SHELTER", "label": "Barınak"},
			{"code": "OWNER", "label": "Sahibinden"},
			{"code": "STREET", "label": "Sokak"},
		},
		"training-categories": {
			{"code": "OBEDIENCE", "label": "İtaat"},
			{"code": "AGILITY", "label": "Çeviklik"},
		},
		// Proficiency levels carry "name" instead of "label" upstream.
		"proficiency-levels": {
			{"code": "BEGINNER", "name": "Başlangıç"},
			{"code": "INTERMEDIATE", "name": "Orta"},
			{"code": "ADVANCED", "name": "İleri"},
		},
		"species": {
			{"name": "Kedi"},
			{"name": "Köpek"},
		},
		"breeds": {
			{"name": "Tekir", "speciesName": "Kedi"},
			{"name": "Golden Retriever", "speciesName": "Köpek"},
		},
		"shelters": {
			{"name": "Ankara Hayvan Barınağı", "city": "Ankara", "phone": "+903120000000"},
			{"name": "İzmir Hayvan Barınağı", "city": "İzmir", "phone": "+902320000000"},
		},
		"animals": {
			{
				"name": "Pamuk", "speciesName": "Kedi", "breedName": "Tekir",
				"gender": "FEMALE", "colorCode": "WHITE", "ageGroup": "ADULT",
				"organization": map[string]any{"code": "ANK01", "name": "Ankara Hayvan Barınağı"},
			},
			{
				"name": "Karabaş", "speciesName": "Köpek", "breedName": "Golden Retriever",
				"gender": "MALE", "colorCode": "BROWN", "ageGroup": "BABY",
				"organization": map[string]any{"code": "IZM01", "name": "İzmir Hayvan Barınağı"},
			},
		},
	}

	for collection, records := range seeds {
		existing, err := st.List(ctx, collection)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		for _, rec := range records {
			if _, err := st.Insert(ctx, collection, rec); err != nil {
				return err
			}
		}
		log.Printf("Seeded %d %s", len(records), collection)
	}
	return nil
}
