package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// LocalStore is the development backend: every table is a set of JSON
// documents in one sqlite file, and every write is echoed to the change
// feed. It stands in for the hosted store in backend.mode=local and in
// integration tests.
type LocalStore struct {
	db   *sql.DB
	feed domain.FeedPublisher
}

func NewLocalStore(path string, feed domain.FeedPublisher) (*LocalStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		tbl TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (tbl, id)
	)`); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &LocalStore{db: db, feed: feed}, nil
}

func (s *LocalStore) Close() error { return s.db.Close() }

func (s *LocalStore) Select(ctx context.Context, table string, filters []domain.Filter, order *domain.Order, dest any) error {
	rows, err := s.loadTable(ctx, table)
	if err != nil {
		return err
	}

	matched := rows[:0]
	for _, row := range rows {
		if matchesAll(row, filters) {
			matched = append(matched, row)
		}
	}

	if order != nil {
		col, desc := order.Column, order.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			less := lessValue(matched[i][col], matched[j][col])
			if desc {
				return !less && !equalValue(matched[i][col], matched[j][col])
			}
			return less
		})
	}

	return remarshal(matched, dest)
}

func (s *LocalStore) Insert(ctx context.Context, table string, row any, dest any) error {
	doc := map[string]any{}
	if err := remarshal(row, &doc); err != nil {
		return err
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["id"] = id
	}
	now := time.Now().UTC()
	if !hasTimestamp(doc, "created_at") {
		// Fixed-width fraction keeps lexicographic order equal to time order.
		doc["created_at"] = now.Format(timestampLayout)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (tbl, id, data, created_at) VALUES (?, ?, ?, ?)`,
		table, id, string(data), now)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}

	s.publish(ctx, domain.ChangeEvent{Type: domain.ChangeInsert, Table: table, New: data})
	if dest != nil {
		return json.Unmarshal(data, dest)
	}
	return nil
}

func (s *LocalStore) Update(ctx context.Context, table string, id string, patch map[string]any, dest any) error {
	old, err := s.loadRow(ctx, table, id)
	if err != nil {
		return err
	}
	oldData, _ := json.Marshal(old)

	doc := map[string]any{}
	for k, v := range old {
		doc[k] = v
	}
	for k, v := range patch {
		doc[k] = v
	}
	doc["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE records SET data = ? WHERE tbl = ? AND id = ?`,
		string(data), table, id); err != nil {
		return fmt.Errorf("update %s/%s: %w", table, id, err)
	}

	s.publish(ctx, domain.ChangeEvent{Type: domain.ChangeUpdate, Table: table, New: data, Old: oldData})
	if dest != nil {
		return json.Unmarshal(data, dest)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, table string, id string) error {
	old, err := s.loadRow(ctx, table, id)
	if err != nil {
		return err
	}
	oldData, _ := json.Marshal(old)

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE tbl = ? AND id = ?`, table, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}

	s.publish(ctx, domain.ChangeEvent{Type: domain.ChangeDelete, Table: table, Old: oldData})
	return nil
}

func (s *LocalStore) publish(ctx context.Context, event domain.ChangeEvent) {
	if s.feed == nil {
		return
	}
	_ = s.feed.Publish(ctx, event)
}

func (s *LocalStore) loadTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM records WHERE tbl = ? ORDER BY created_at`, table)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		doc := map[string]any{}
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", table, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *LocalStore) loadRow(ctx context.Context, table, id string) (map[string]any, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE tbl = ? AND id = ?`, table, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", table, id, err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// remarshal copies src into dest through its JSON form. The store keeps
// rows as generic documents; this is the bridge to callers' typed slices
// and structs.
func remarshal(src any, dest any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// hasTimestamp reports whether the document carries a usable timestamp in
// the given field. Marshalled zero time.Time values count as absent.
func hasTimestamp(doc map[string]any, field string) bool {
	raw, ok := doc[field]
	if !ok {
		return false
	}
	s, ok := raw.(string)
	if !ok {
		return true
	}
	if s == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return true
	}
	return !t.IsZero()
}

func matchesAll(row map[string]any, filters []domain.Filter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	return true
}

func matches(row map[string]any, f domain.Filter) bool {
	val := row[f.Column]
	switch f.Op {
	case "", "eq":
		return fmt.Sprint(val) == fmt.Sprint(f.Value)
	case "neq":
		// neq.null mirrors the hosted surface: "column is set"
		if f.Value == nil {
			return val != nil && fmt.Sprint(val) != ""
		}
		return fmt.Sprint(val) != fmt.Sprint(f.Value)
	case "in":
		vals, _ := f.Value.([]any)
		for _, v := range vals {
			if fmt.Sprint(val) == fmt.Sprint(v) {
				return true
			}
		}
		return false
	case "gte":
		return strings.Compare(fmt.Sprint(val), fmt.Sprint(f.Value)) >= 0
	case "lte":
		return strings.Compare(fmt.Sprint(val), fmt.Sprint(f.Value)) <= 0
	}
	return false
}

func lessValue(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		// descending is_default first when Descending is set by callers
		return !ab && bb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func equalValue(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// SeedServices inserts the default catalog when the services table is
// empty, so a fresh local environment has something to book.
func (s *LocalStore) SeedServices(ctx context.Context, services []models.Service) error {
	var existing []models.Service
	if err := s.Select(ctx, models.TableServices, nil, nil, &existing); err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, svc := range services {
		if err := s.Insert(ctx, models.TableServices, svc, nil); err != nil {
			return err
		}
	}
	return nil
}
