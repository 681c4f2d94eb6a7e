package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"valvx/internal/auth"
	"valvx/internal/config"
	"valvx/internal/repository/postgres"
	"valvx/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed directories (for use with shell scripts)")
	clearData := flag.Bool("clear-data", false, "Clear all files and directories (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Exit early if clear-data mode (just clear and exit)
	if *clearData {
		log.Println("🧹 Clearing existing files and directories...")
		if err := clearAllData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Provision a test user against the identity provider when configured
	testUserID := ensureTestUser()

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	nodeRepo := postgres.NewNodeRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Create services
	nodeService := service.NewNodeService(nodeRepo, txManager, logger)

	// Clear existing data
	log.Println("⚠️  Clearing existing files and directories...")
	if err := clearAllData(ctx, pool, tables); err != nil {
		log.Printf("Warning: Could not clear data: %v", err)
	}

	// Seed directory tree
	log.Println("📁 Seeding directory tree...")

	entries := getSeedDirectories(cfg.ProjectID, testUserID)

	// Slugs map parent names to generated IDs as we walk the list
	created := make(map[string]int64)
	for i, entry := range entries {
		if entry.parentOf != "" {
			parentID, ok := created[entry.parentOf]
			if !ok {
				log.Printf("❌ Parent '%s' missing for '%s', skipping", entry.parentOf, entry.request.Name)
				continue
			}
			entry.request.ParentID = &parentID
		}

		node, err := nodeService.CreateNode(ctx, entry.request)
		if err != nil {
			log.Printf("❌ Failed to create directory '%s': %v", entry.request.Name, err)
			continue
		}
		created[entry.request.Name] = node.ID

		log.Printf("✅ Created directory %d/%d: %s (slug: %s)",
			i+1, len(entries), node.Name, node.Slug)
	}

	log.Println("🎉 Seeding complete!")
}

// ensureTestUser recreates the test account via the identity provider's
// admin API. Returns an empty string when the provider is not configured.
func ensureTestUser() string {
	idpURL := os.Getenv("IDP_URL")
	serviceKey := os.Getenv("IDP_SERVICE_KEY")
	email := os.Getenv("TEST_USER_EMAIL")
	password := os.Getenv("TEST_USER_PASSWORD")
	if idpURL == "" || serviceKey == "" || email == "" || password == "" {
		return ""
	}

	admin := auth.NewAdminClient(idpURL, serviceKey)
	if err := admin.DeleteUserByEmail(email); err != nil {
		log.Printf("Warning: could not delete existing test user: %v", err)
	}
	userID, err := admin.CreateUser(email, password)
	if err != nil {
		log.Printf("Warning: could not create test user: %v", err)
		return ""
	}
	log.Printf("👤 Test user ready: %s (ID: %s)", email, userID)
	return userID
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Create directories table
	createNodes := `
		CREATE TABLE IF NOT EXISTS ` + tables.Nodes + ` (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL DEFAULT '',
			project_id BIGINT,
			parent_id BIGINT REFERENCES ` + tables.Nodes + `(id),
			kind TEXT NOT NULL DEFAULT 'folder',
			is_sidebar_item BOOLEAN NOT NULL DEFAULT FALSE,
			has_page BOOLEAN NOT NULL DEFAULT FALSE,
			page_title TEXT NOT NULL DEFAULT '',
			page_description TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createNodes); err != nil {
		return err
	}

	// Create files table
	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			directory_id BIGINT REFERENCES ` + tables.Nodes + `(id),
			project_id BIGINT,
			blob_handle TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'application/pdf',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			previous_version_id BIGINT REFERENCES ` + tables.Documents + `(id) ON DELETE SET NULL,
			is_latest BOOLEAN NOT NULL DEFAULT TRUE,
			description TEXT NOT NULL DEFAULT '',
			uploaded_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return err
	}

	// Create annotations table
	createAnnotations := `
		CREATE TABLE IF NOT EXISTS ` + tables.Annotations + ` (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			project_id BIGINT,
			x DOUBLE PRECISION NOT NULL DEFAULT 0,
			y DOUBLE PRECISION NOT NULL DEFAULT 0,
			width DOUBLE PRECISION NOT NULL DEFAULT 0,
			height DOUBLE PRECISION NOT NULL DEFAULT 0,
			page_number INTEGER NOT NULL DEFAULT 1,
			comment TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'new_comment',
			created_by TEXT NOT NULL DEFAULT '',
			assigned_to TEXT,
			deadline TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createAnnotations); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		// Slug lookups; empty slugs exist only inside the two-phase insert
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `directories_slug ON ` + tables.Nodes + `(slug) WHERE slug <> ''`,
		// Sibling name uniqueness, case-insensitive, NULL parent/project treated as values
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `directories_sibling ON ` + tables.Nodes + `(project_id, parent_id, lower(name), is_sidebar_item) NULLS NOT DISTINCT`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `directories_parent ON ` + tables.Nodes + `(project_id, parent_id)`,
		// Backstop for concurrent uploads: at most one latest per chain key
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_latest ON ` + tables.Documents + `(project_id, directory_id, lower(name)) NULLS NOT DISTINCT WHERE is_latest`,
		// Each revision has at most one successor
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_prev ON ` + tables.Documents + `(previous_version_id) WHERE previous_version_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_directory ON ` + tables.Documents + `(directory_id) WHERE is_latest`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `annotations_document ON ` + tables.Annotations + `(document_id)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Annotations,
		tables.Documents,
		tables.Nodes,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearAllData clears annotations, files, and directories
func clearAllData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Annotations, tables.Documents, tables.Nodes} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type seedDirectory struct {
	parentOf string // name of the parent directory, empty for roots
	request  *service.CreateNodeRequest
}

func getSeedDirectories(projectID *int64, userID string) []seedDirectory {
	return []seedDirectory{
		{
			request: &service.CreateNodeRequest{
				Name:          "Drawings",
				ProjectID:     projectID,
				IsSidebarItem: true,
				HasPage:       true,
				PageTitle:     "Project Drawings",
				CreatedBy:     userID,
			},
		},
		{
			parentOf: "Drawings",
			request: &service.CreateNodeRequest{
				Name:      "Floor Plans",
				ProjectID: projectID,
				CreatedBy: userID,
			},
		},
		{
			parentOf: "Drawings",
			request: &service.CreateNodeRequest{
				Name:      "Elevations",
				ProjectID: projectID,
				CreatedBy: userID,
			},
		},
		{
			request: &service.CreateNodeRequest{
				Name:          "Specifications",
				ProjectID:     projectID,
				IsSidebarItem: true,
				HasPage:       true,
				CreatedBy:     userID,
			},
		},
		{
			parentOf: "Specifications",
			request: &service.CreateNodeRequest{
				Name:      "Mechanical",
				ProjectID: projectID,
				CreatedBy: userID,
			},
		},
		{
			parentOf: "Specifications",
			request: &service.CreateNodeRequest{
				Name:      "Electrical",
				ProjectID: projectID,
				CreatedBy: userID,
			},
		},
		{
			request: &service.CreateNodeRequest{
				Name:            "Reports",
				ProjectID:       projectID,
				IsSidebarItem:   true,
				HasPage:         true,
				PageTitle:       "Site Reports",
				PageDescription: "Weekly site inspection reports and photo logs.",
				CreatedBy:       userID,
			},
		},
	}
}
