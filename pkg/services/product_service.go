// Package services is the persistence layer: thin SQL-backed services over
// the shared database/sql pool. Product, phase, history and knowledge
// tables are owned by the product workspace and read here; the jobs and
// job_events tables are owned by this process. Writes that must land even
// when the caller's request dies use a background context with a timeout.
package services

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/northstar-pm/northstar/pkg/models"
)

// ProductService reads products, lifecycle phases, phase submissions and
// conversation history, and records new conversation turns. It implements
// the context builder's HistoryStore and PhaseStore interfaces.
type ProductService struct {
	db *stdsql.DB
}

// NewProductService creates a ProductService on the shared pool.
func NewProductService(db *stdsql.DB) *ProductService {
	return &ProductService{db: db}
}

// GetProduct retrieves one product by ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, NewValidationError("id", "required")
	}

	var (
		p        models.Product
		metadata []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, user_id, name, description, status, metadata, created_at, updated_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.TenantID, &p.UserID, &p.Name, &p.Description, &p.Status,
		&metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode product metadata: %w", err)
		}
	}
	return &p, nil
}

// ListLifecyclePhases returns all lifecycle phases in workflow order.
func (s *ProductService) ListLifecyclePhases(ctx context.Context) ([]models.LifecyclePhase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phase_order, description
		FROM product_lifecycle_phases ORDER BY phase_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lifecycle phases: %w", err)
	}
	defer rows.Close()

	var phases []models.LifecyclePhase
	for rows.Next() {
		var p models.LifecyclePhase
		if err := rows.Scan(&p.ID, &p.Name, &p.Order, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle phase: %w", err)
		}
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lifecycle phases: %w", err)
	}
	return phases, nil
}

// ConversationHistory returns up to limit stored messages for the user and
// product, oldest first. The window is the most recent messages; an empty
// userID matches any user's turns on the product.
func (s *ProductService) ConversationHistory(ctx context.Context, userID, productID string, limit int) ([]models.AgentMessage, error) {
	if productID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM conversation_history
		WHERE product_id = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY id DESC LIMIT $3`,
		productID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	defer rows.Close()

	var newestFirst []models.AgentMessage
	for rows.Next() {
		var (
			role    string
			msg     models.AgentMessage
			created time.Time
		)
		if err := rows.Scan(&role, &msg.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		msg.Role = models.MessageRole(role)
		msg.Timestamp = created
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversation history: %w", err)
	}

	// The query walks backwards to find the window; callers want it
	// oldest first.
	history := make([]models.AgentMessage, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		history = append(history, newestFirst[i])
	}
	return history, nil
}

// RecordConversation appends one conversation turn.
func (s *ProductService) RecordConversation(ctx context.Context, entry models.ConversationEntry) error {
	if entry.ProductID == "" {
		return NewValidationError("product_id", "required")
	}
	if !entry.Role.IsValid() {
		return NewValidationError("role", "must be user, assistant or system")
	}
	if entry.Content == "" {
		return NewValidationError("content", "required")
	}

	var metadata any
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation metadata: %w", err)
		}
		metadata = string(raw)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// Background context: the turn should persist even when the request
	// that produced it has been cancelled.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(writeCtx,
		`INSERT INTO conversation_history
		(product_id, user_id, role, content, agent_name, phase_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7::jsonb, $8)`,
		entry.ProductID, entry.UserID, string(entry.Role), entry.Content,
		entry.AgentName, entry.PhaseID, metadata, createdAt)
	if err != nil {
		return fmt.Errorf("failed to record conversation: %w", err)
	}
	return nil
}

// CompletedPhases maps each completed phase name to its stored output: the
// submitted form data rendered as "field: value" lines, followed by the
// generated artifact when one exists.
func (s *ProductService) CompletedPhases(ctx context.Context, productID string) (map[string]string, error) {
	if productID == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.name, COALESCE(s.form_data::text, ''), COALESCE(s.generated_content, '')
		FROM phase_submissions s
		JOIN product_lifecycle_phases p ON p.id = s.phase_id
		WHERE s.product_id = $1 AND s.status = 'completed'
		ORDER BY p.phase_order`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed phases: %w", err)
	}
	defer rows.Close()

	completed := make(map[string]string)
	for rows.Next() {
		var name, formJSON, generated string
		if err := rows.Scan(&name, &formJSON, &generated); err != nil {
			return nil, fmt.Errorf("failed to scan phase submission: %w", err)
		}
		completed[name] = renderPhaseOutput(formJSON, generated)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read completed phases: %w", err)
	}
	return completed, nil
}

// ListKnowledgeArticles returns stored articles, optionally scoped to a
// product. The startup path feeds these into the vector store.
func (s *ProductService) ListKnowledgeArticles(ctx context.Context, productID string) ([]*models.KnowledgeArticle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(product_id, ''), title, content, metadata
		FROM knowledge_articles
		WHERE $1 = '' OR product_id = $1
		ORDER BY created_at`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge articles: %w", err)
	}
	defer rows.Close()

	var articles []*models.KnowledgeArticle
	for rows.Next() {
		var (
			a        models.KnowledgeArticle
			metadata []byte
		)
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Title, &a.Content, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge article: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode article metadata: %w", err)
			}
		}
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read knowledge articles: %w", err)
	}
	return articles, nil
}

// renderPhaseOutput flattens a submission into the text block downstream
// prompts consume. Field order is alphabetical so the rendering is stable.
func renderPhaseOutput(formJSON, generated string) string {
	var sections []string

	if formJSON != "" {
		var form map[string]any
		if err := json.Unmarshal([]byte(formJSON), &form); err == nil && len(form) > 0 {
			keys := make([]string, 0, len(form))
			for k := range form {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			lines := make([]string, 0, len(keys))
			for _, k := range keys {
				lines = append(lines, fmt.Sprintf("%s: %v", k, form[k]))
			}
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}

	if generated != "" {
		sections = append(sections, generated)
	}
	return strings.Join(sections, "\n\n")
}
