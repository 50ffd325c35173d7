package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"buyer_agent/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// OpenMySQL connects with parseTime forced on and verifies the connection.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	return db, nil
}

// RoundLogRepository stores one row per negotiation round.
type RoundLogRepository struct {
	db *sql.DB
}

func NewRoundLogRepository(db *sql.DB) *RoundLogRepository {
	return &RoundLogRepository{db: db}
}

const createRoundsTable = `CREATE TABLE IF NOT EXISTS negotiation_rounds (
	id CHAR(26) PRIMARY KEY COMMENT 'ULID',
	session_id CHAR(26) NOT NULL,
	round INT NOT NULL,
	seller_price DECIMAL(18,2) NULL,
	seller_message TEXT NOT NULL,
	buyer_action VARCHAR(16) NOT NULL COMMENT 'OFFER, ACCEPT, REJECT',
	buyer_offer DECIMAL(18,2) NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_rounds_session (session_id, round)
)`

// Migrate creates the table if it does not exist yet.
func (r *RoundLogRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRoundsTable); err != nil {
		return fmt.Errorf("migrate negotiation_rounds: %w", err)
	}
	return nil
}

// Save appends rec to the log of sessionID.
func (r *RoundLogRepository) Save(ctx context.Context, sessionID string, rec models.RoundRecord) error {
	query := `INSERT INTO negotiation_rounds (id, session_id, round, seller_price, seller_message, buyer_action, buyer_offer, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		ulid.Make().String(),
		sessionID,
		rec.Round,
		nullable(rec.SellerPrice),
		rec.SellerMessage,
		string(rec.BuyerAction),
		nullable(rec.BuyerOffer),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert round %d of %s: %w", rec.Round, sessionID, err)
	}
	return nil
}

// ListBySession returns the rounds of sessionID in round order.
func (r *RoundLogRepository) ListBySession(ctx context.Context, sessionID string) ([]models.RoundRecord, error) {
	query := `SELECT round, seller_price, seller_message, buyer_action, buyer_offer FROM negotiation_rounds WHERE session_id = ? ORDER BY round ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.RoundRecord
	for rows.Next() {
		var rec models.RoundRecord
		var action string
		var sellerPrice, buyerOffer decimal.NullDecimal
		if err := rows.Scan(&rec.Round, &sellerPrice, &rec.SellerMessage, &action, &buyerOffer); err != nil {
			return nil, err
		}
		rec.BuyerAction = models.Action(action)
		if sellerPrice.Valid {
			rec.SellerPrice = models.Price(sellerPrice.Decimal)
		}
		if buyerOffer.Valid {
			rec.BuyerOffer = models.Price(buyerOffer.Decimal)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullable(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return *p
}
