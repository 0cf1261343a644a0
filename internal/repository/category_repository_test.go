package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"testing"
	"time"

	"catalog-api/internal/domain"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			uuid UUID UNIQUE NOT NULL,
			brand VARCHAR(255) NOT NULL,
			model VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price DECIMAL(10, 2) NOT NULL CHECK (price >= 0),
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			image VARCHAR(500) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			category_id BIGINT NOT NULL REFERENCES categories (id) ON DELETE RESTRICT,
			category_name VARCHAR(100) NOT NULL
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Printf("could not terminate postgres container: %v", err)
		}
	}
}

func resetTables(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec(`TRUNCATE products, categories RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

func newTestCategory(name string) *domain.Category {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Category{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func insertTestProduct(t *testing.T, repo ProductRepository, category *domain.Category, brand, model string) *domain.Product {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	product := &domain.Product{
		UUID:      uuid.New(),
		Brand:     brand,
		Model:     model,
		Price:     10,
		Stock:     1,
		Image:     domain.DefaultProductImage,
		CreatedAt: now,
		UpdatedAt: now,
		Category:  *category,
	}
	if err := repo.Create(context.Background(), product); err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}
	return product
}

func TestCategoryCreateAssignsIDAndRoundTrips(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	category := newTestCategory("zapatillas")
	if err := repo.Create(ctx, category); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if category.ID == 0 {
		t.Fatal("store did not assign an id")
	}

	found, err := repo.FindByID(ctx, category.ID)
	if err != nil {
		t.Fatalf("findByID failed: %v", err)
	}
	if found.Name != "zapatillas" || found.IsDeleted {
		t.Errorf("round-trip mismatch: %+v", found)
	}
}

func TestCategoryFindByNameIsCaseInsensitive(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	category := newTestCategory("Zapatillas")
	if err := repo.Create(ctx, category); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, name := range []string{"zapatillas", "ZAPATILLAS", "Zapatillas"} {
		found, err := repo.FindByName(ctx, name)
		if err != nil {
			t.Fatalf("findByName(%q) failed: %v", name, err)
		}
		if found.ID != category.ID {
			t.Errorf("findByName(%q) returned wrong category %d", name, found.ID)
		}
	}

	if _, err := repo.FindByName(ctx, "camisetas"); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryFindByNamePrefersLiveRow(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	// A retired category and its live replacement share the name
	retired := newTestCategory("seasonal")
	retired.IsDeleted = true
	if err := repo.Create(ctx, retired); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	live := newTestCategory("SEASONAL")
	if err := repo.Create(ctx, live); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := repo.FindByName(ctx, "seasonal")
	if err != nil {
		t.Fatalf("findByName failed: %v", err)
	}
	if found.ID != live.ID || found.IsDeleted {
		t.Errorf("lookup returned the soft-deleted row: %+v", found)
	}
}

func TestCategoryListFiltersAndPaginates(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	names := []string{"running shoes", "hiking shoes", "shirts", "socks"}
	for _, name := range names {
		if err := repo.Create(ctx, newTestCategory(name)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	deleted := newTestCategory("discontinued shoes")
	deleted.IsDeleted = true
	if err := repo.Create(ctx, deleted); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Substring filter is case-insensitive
	categories, total, err := repo.List(ctx, CategoryFilter{Name: "SHOES"}, 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(categories) != 3 {
		t.Errorf("expected 3 shoe categories, got total=%d len=%d", total, len(categories))
	}

	// Combined with the deleted filter it narrows further
	notDeleted := false
	categories, total, err = repo.List(ctx, CategoryFilter{Name: "shoes", IsDeleted: &notDeleted}, 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 live shoe categories, got %d", total)
	}

	// Pagination is ordered by id ascending
	categories, total, err = repo.List(ctx, CategoryFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 || len(categories) != 2 {
		t.Fatalf("expected page of 2 with total 5, got total=%d len=%d", total, len(categories))
	}
	if categories[0].ID >= categories[1].ID {
		t.Errorf("page not ordered by id: %d, %d", categories[0].ID, categories[1].ID)
	}
}

func TestCategoryDeleteGuardedByReferencingProducts(t *testing.T) {
	resetTables(t)
	categoryRepo := NewCategoryRepository(testDB)
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	category := newTestCategory("zapatillas")
	if err := categoryRepo.Create(ctx, category); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	product := insertTestProduct(t, productRepo, category, "Nike", "Air")

	var inUse bool
	err := testDB.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM products WHERE category_id = $1)`, category.ID,
	).Scan(&inUse)
	if err != nil || !inUse {
		t.Fatalf("expected a referencing product row, got %v err=%v", inUse, err)
	}

	if err := categoryRepo.Delete(ctx, category.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}

	// The rejected delete must leave the category in place
	if _, err := categoryRepo.FindByID(ctx, category.ID); err != nil {
		t.Fatalf("category gone after rejected delete: %v", err)
	}

	if err := productRepo.Delete(ctx, product.ID); err != nil {
		t.Fatalf("product delete failed: %v", err)
	}

	if err := categoryRepo.Delete(ctx, category.ID); err != nil {
		t.Fatalf("delete failed after product removal: %v", err)
	}
	if _, err := categoryRepo.FindByID(ctx, category.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryUpdatePersistsChanges(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	category := newTestCategory("zapatillas")
	if err := repo.Create(ctx, category); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	category.Name = "sneakers"
	category.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := repo.Update(ctx, category); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	found, err := repo.FindByID(ctx, category.ID)
	if err != nil {
		t.Fatalf("findByID failed: %v", err)
	}
	if found.Name != "sneakers" {
		t.Errorf("update not persisted: %q", found.Name)
	}

	missing := newTestCategory("ghost")
	missing.ID = 9999
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}
