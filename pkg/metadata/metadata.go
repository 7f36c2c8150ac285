package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ColumnInfo describes one column of a civic table.
type ColumnInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// TableInfo describes one queryable civic table.
type TableInfo struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Columns     []ColumnInfo `json:"columns"`
}

// IProvider exposes the schema catalog to the structured retriever.
type IProvider interface {
	ListTables(ctx context.Context) ([]TableInfo, error)
	KeywordHint(ctx context.Context, question string) []string
	SchemaPrompt(ctx context.Context) (string, error)
}

const redisSchemaKey = "civic:schema:tables"

// tableDescriptions and columnDescriptions carry the curated wording the
// model sees; live introspection supplies names and types.
var tableDescriptions = map[string]string{
	"service_requests": "311 service requests filed by residents (category, status, open/close dates, neighborhood)",
	"incident_reports": "Public-safety incident reports (offense type, date, location, disposition)",
	"weekly_events":    "Upcoming community events (title, date as printed, start/end date and time, description, source calendar)",
}

var columnDescriptions = map[string]string{
	"service_requests.category":  "Request category, e.g. 'Pothole', 'Streetlight Outage'",
	"service_requests.status":    "Open, In Progress, or Closed",
	"incident_reports.offense":   "Offense classification, e.g. 'Larceny', 'Shots Fired'",
	"weekly_events.event_name":   "Event title as printed in the weekly calendar",
	"weekly_events.start_date":   "Calendar date the event begins",
	"weekly_events.raw_text":     "Full event description from the source calendar",
}

// keywordTableHints maps question vocabulary to candidate tables.
var keywordTableHints = map[string][]string{
	"event":     {"weekly_events"},
	"events":    {"weekly_events"},
	"calendar":  {"weekly_events"},
	"schedule":  {"weekly_events"},
	"happening": {"weekly_events"},
	"activity":  {"weekly_events"},
	"meeting":   {"weekly_events"},
	"crime":     {"incident_reports"},
	"arrest":    {"incident_reports"},
	"offense":   {"incident_reports"},
	"incident":  {"incident_reports"},
	"safety":    {"incident_reports"},
	"shooting":  {"incident_reports"},
	"homicide":  {"incident_reports"},
	"311":       {"service_requests"},
	"request":   {"service_requests"},
	"pothole":   {"service_requests"},
	"complaint": {"service_requests"},
	"service":   {"service_requests"},
	"trash":     {"service_requests"},
	"streetlight": {"service_requests"},
}

type catalogProvider struct {
	db       *gorm.DB
	rdb      *redis.Client
	cacheTTL time.Duration

	// In-process fallback when Redis is down
	mu        sync.Mutex
	cached    []TableInfo
	cachedAt  time.Time
}

func NewCatalogProvider(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) IProvider {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &catalogProvider{
		db:       db,
		rdb:      rdb,
		cacheTTL: cacheTTL,
	}
}

// ListTables returns the civic catalog, preferring the Redis copy, then
// the in-process copy, then a live information_schema introspection.
func (p *catalogProvider) ListTables(ctx context.Context) ([]TableInfo, error) {
	if tables, ok := p.fromRedis(ctx); ok {
		return tables, nil
	}

	p.mu.Lock()
	if p.cached != nil && time.Since(p.cachedAt) < p.cacheTTL {
		tables := p.cached
		p.mu.Unlock()
		return tables, nil
	}
	p.mu.Unlock()

	tables, err := p.introspect(ctx)
	if err != nil {
		// Serve a stale in-process copy over failing the turn
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.cached != nil {
			return p.cached, nil
		}
		return nil, err
	}

	p.mu.Lock()
	p.cached = tables
	p.cachedAt = time.Now()
	p.mu.Unlock()

	p.toRedis(ctx, tables)
	return tables, nil
}

func (p *catalogProvider) fromRedis(ctx context.Context) ([]TableInfo, bool) {
	if p.rdb == nil {
		return nil, false
	}
	payload, err := p.rdb.Get(ctx, redisSchemaKey).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[WARN] Schema cache read failed: %v", err)
		}
		return nil, false
	}
	var tables []TableInfo
	if err := json.Unmarshal([]byte(payload), &tables); err != nil {
		log.Printf("[WARN] Schema cache payload invalid: %v", err)
		return nil, false
	}
	return tables, true
}

func (p *catalogProvider) toRedis(ctx context.Context, tables []TableInfo) {
	if p.rdb == nil {
		return
	}
	payload, err := json.Marshal(tables)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, redisSchemaKey, payload, p.cacheTTL).Err(); err != nil {
		log.Printf("[WARN] Schema cache write failed: %v", err)
	}
}

type catalogRow struct {
	TableName  string
	ColumnName string
	DataType   string
}

func (p *catalogProvider) introspect(ctx context.Context) ([]TableInfo, error) {
	names := make([]string, 0, len(tableDescriptions))
	for name := range tableDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []catalogRow
	err := p.db.WithContext(ctx).
		Raw(`SELECT table_name, column_name, data_type
		     FROM information_schema.columns
		     WHERE table_schema = 'public' AND table_name IN ?
		     ORDER BY table_name, ordinal_position`, names).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("introspect catalog: %w", err)
	}

	byTable := make(map[string]*TableInfo)
	var order []string
	for _, row := range rows {
		info, ok := byTable[row.TableName]
		if !ok {
			info = &TableInfo{
				Name:        row.TableName,
				Description: tableDescriptions[row.TableName],
			}
			byTable[row.TableName] = info
			order = append(order, row.TableName)
		}
		info.Columns = append(info.Columns, ColumnInfo{
			Name:        row.ColumnName,
			Type:        row.DataType,
			Description: columnDescriptions[row.TableName+"."+row.ColumnName],
		})
	}

	tables := make([]TableInfo, 0, len(order))
	for _, name := range order {
		tables = append(tables, *byTable[name])
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no civic tables found in catalog")
	}
	return tables, nil
}

// KeywordHint scans the question for vocabulary that points at candidate
// tables. An empty result means no plausible table for this question.
func (p *catalogProvider) KeywordHint(ctx context.Context, question string) []string {
	words := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		return !isAlnum
	})

	seen := make(map[string]bool)
	var hints []string
	add := func(table string) {
		if !seen[table] {
			seen[table] = true
			hints = append(hints, table)
		}
	}

	lowered := strings.ToLower(question)
	for name := range tableDescriptions {
		if strings.Contains(lowered, name) {
			add(name)
		}
	}
	for _, word := range words {
		for _, table := range keywordTableHints[word] {
			add(table)
		}
	}
	return hints
}

// SchemaPrompt renders the catalog as the schema block for SQL drafting.
func (p *catalogProvider) SchemaPrompt(ctx context.Context) (string, error) {
	tables, err := p.ListTables(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, table := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("Table %s", table.Name))
		if table.Description != "" {
			b.WriteString(fmt.Sprintf(" - %s", table.Description))
		}
		b.WriteString("\n")
		for _, col := range table.Columns {
			b.WriteString(fmt.Sprintf("  %s %s", col.Name, col.Type))
			if col.Description != "" {
				b.WriteString(fmt.Sprintf("  -- %s", col.Description))
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
