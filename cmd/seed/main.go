// seed inserts two users, a handful of stores and some reviews into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/email"
	"github.com/ErlanBelekov/store-finder/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/store-finder/internal/usecase"
)

const seedPassword = "wes"

var seedUsers = []usecase.RegisterInput{
	{Name: "Wes Bos", Email: "wes@example.com", Password: seedPassword},
	{Name: "Debbie Downer", Email: "debbie@example.com", Password: seedPassword},
}

type storeSpec struct {
	author      int
	name        string
	description string
	tags        []string
	address     string
	lng, lat    float64
}

var stores = []storeSpec{
	{0, "Coffee Corner", "Small batch roasts and a big window seat.", []string{"Wifi", "Open Late"},
		"128 Spadina Ave, Toronto", -79.3975, 43.6488},
	{0, "Coffee Corner", "The second location, same beans.", []string{"Wifi", "Family Friendly"},
		"900 Queen St W, Toronto", -79.4112, 43.6441},
	{1, "Bagel Barn", "Wood fired bagels since forever.", []string{"Family Friendly"},
		"1 Front St E, Toronto", -79.3745, 43.6487},
	{1, "Night Owl Diner", "Breakfast at 3am.", []string{"Open Late", "Licensed"},
		"250 Dundas St W, Toronto", -79.3891, 43.6545},
	{0, "Leaf & Ladle", "Vegetarian soups and salads.", []string{"Vegetarian", "Wifi"},
		"33 Yonge St, Toronto", -79.3770, 43.6468},
	{1, "Plain Store", "No tags at all.", nil,
		"10 Bay St, Toronto", -79.3773, 43.6426},
}

type reviewSpec struct {
	author int
	store  int
	text   string
	rating int
}

var reviews = []reviewSpec{
	{1, 0, "Great flat white.", 5},
	{1, 0, "Crowded on weekends.", 3},
	{0, 2, "Best sesame bagel in town.", 5},
	{0, 2, "Coffee was cold.", 2},
	{1, 4, "Lovely lentil soup.", 4},
	{0, 3, "Pancakes at midnight!", 4},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userRepo := postgres.NewUserRepository(pool)
	auth := usecase.NewAuthUsecase(userRepo, usecase.NewPasswordAuthenticator(userRepo), email.NewLogSender(logger), logger, "")
	storeUsecase := usecase.NewStoreUsecase(postgres.NewStoreRepository(pool), userRepo)
	reviewUsecase := usecase.NewReviewUsecase(postgres.NewReviewRepository(pool))

	users := make([]*domain.User, len(seedUsers))
	for i, in := range seedUsers {
		u, err := auth.Register(ctx, in)
		if errors.Is(err, domain.ErrEmailTaken) {
			u, err = auth.Login(ctx, in.Email, in.Password)
		}
		if err != nil {
			log.Fatalf("user %s: %v", in.Email, err)
		}
		users[i] = u
	}

	created := make([]*domain.Store, len(stores))
	for i, spec := range stores {
		lng, lat := spec.lng, spec.lat
		s, err := storeUsecase.CreateStore(ctx, usecase.CreateStoreInput{
			AuthorID: users[spec.author].ID,
			StoreInput: usecase.StoreInput{
				Name:        spec.name,
				Description: spec.description,
				Tags:        spec.tags,
				Address:     spec.address,
				Lng:         &lng,
				Lat:         &lat,
			},
		})
		if err != nil {
			log.Fatalf("store %s: %v", spec.name, err)
		}
		created[i] = s
	}

	for _, spec := range reviews {
		_, err := reviewUsecase.AddReview(ctx, usecase.AddReviewInput{
			AuthorID: users[spec.author].ID,
			StoreID:  created[spec.store].ID,
			Text:     spec.text,
			Rating:   spec.rating,
		})
		if err != nil {
			log.Fatalf("review %q: %v", spec.text, err)
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	for _, u := range users {
		fmt.Printf("  User:     %s  (password %q)\n", u.Email, seedPassword)
	}
	fmt.Printf("  Stores:   %d\n", len(created))
	fmt.Printf("  Reviews:  %d\n", len(reviews))
	fmt.Println()
	fmt.Println("  Slugs:")
	for _, s := range created {
		fmt.Printf("    /store/%s\n", s.Slug)
	}
	fmt.Println()
	fmt.Println("Re-running adds another copy of every store with a numbered slug.")
}
