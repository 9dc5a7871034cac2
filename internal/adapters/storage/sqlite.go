package storage

// sqlite.go — persistencia de apuestas y del risk ledger.
//
// Estrategia:
//   - `bets` + `bet_legs`: una fila por apuesta y una por pierna. Los
//     importes de punto fijo se guardan como texto decimal (uint256.Dec),
//     nunca como REAL: la paridad de truncación no sobrevive a float64.
//   - `exposure` / `combo_exposure`: snapshot completo del ledger con
//     reemplazo total por transacción. El ledger es pequeño (decenas de
//     mercados) y el reemplazo evita deltas inconsistentes tras un crash.
//   - Al arrancar, LoadOpenBets + LoadLedger reconstruyen el estado en
//     memoria; las apuestas resueltas quedan como histórico.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
	"github.com/alejandrodnm/parlaybot/internal/risk"
)

const schema = `
CREATE TABLE IF NOT EXISTS bets (
    id             TEXT PRIMARY KEY,
    owner          TEXT     NOT NULL,
    stake          TEXT     NOT NULL,
    net_stake      TEXT     NOT NULL,
    payout_basis   TEXT     NOT NULL,
    combined_price TEXT     NOT NULL,
    created_at     DATETIME NOT NULL,
    expires_at     DATETIME NOT NULL,
    phase          INTEGER  NOT NULL DEFAULT 0,
    lost           INTEGER  NOT NULL DEFAULT 0,
    resolved       INTEGER  NOT NULL DEFAULT 0,
    paused         INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bet_legs (
    bet_id    TEXT    NOT NULL REFERENCES bets(id),
    leg_index INTEGER NOT NULL,
    market_id TEXT    NOT NULL,
    outcome   INTEGER NOT NULL,
    price     TEXT    NOT NULL,
    result    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (bet_id, leg_index)
);

CREATE TABLE IF NOT EXISTS exposure (
    market_id TEXT    NOT NULL,
    outcome   INTEGER NOT NULL,
    amount    TEXT    NOT NULL,
    PRIMARY KEY (market_id, outcome)
);

CREATE TABLE IF NOT EXISTS combo_exposure (
    combo_key TEXT PRIMARY KEY,
    amount    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bets_resolved ON bets(resolved);
CREATE INDEX IF NOT EXISTS idx_bets_owner    ON bets(owner);
`

// SQLiteStore implementa ports.BetStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.BetStore = (*SQLiteStore)(nil)

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveBet inserta una apuesta nueva con sus piernas en una transacción.
func (s *SQLiteStore) SaveBet(ctx context.Context, bet *domain.ParlayBet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveBet: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, owner, stake, net_stake, payout_basis, combined_price,
		                  created_at, expires_at, phase, lost, resolved, paused)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bet.ID, bet.Owner,
		bet.Stake.Dec(), bet.NetStake.Dec(), bet.PayoutBasis.Dec(), bet.CombinedPrice.Dec(),
		bet.CreatedAt.UTC(), bet.ExpiresAt.UTC(),
		int(bet.Phase), boolInt(bet.Lost), boolInt(bet.Resolved), boolInt(bet.Paused),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveBet: insert bet %s: %w", bet.ID, err)
	}

	for i, leg := range bet.Legs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bet_legs (bet_id, leg_index, market_id, outcome, price, result)
			VALUES (?, ?, ?, ?, ?, ?)`,
			bet.ID, i, leg.MarketID, int(leg.Outcome), leg.Price.Dec(), int(leg.Result),
		)
		if err != nil {
			return fmt.Errorf("storage.SaveBet: insert leg %d of %s: %w", i, bet.ID, err)
		}
	}
	return tx.Commit()
}

// UpdateBet persiste el estado de settlement de una apuesta existente.
func (s *SQLiteStore) UpdateBet(ctx context.Context, bet *domain.ParlayBet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.UpdateBet: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bets SET phase = ?, lost = ?, resolved = ?, paused = ? WHERE id = ?`,
		int(bet.Phase), boolInt(bet.Lost), boolInt(bet.Resolved), boolInt(bet.Paused), bet.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateBet: update %s: %w", bet.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.UpdateBet: bet %s not found", bet.ID)
	}

	for i, leg := range bet.Legs {
		_, err = tx.ExecContext(ctx, `
			UPDATE bet_legs SET result = ? WHERE bet_id = ? AND leg_index = ?`,
			int(leg.Result), bet.ID, i,
		)
		if err != nil {
			return fmt.Errorf("storage.UpdateBet: update leg %d of %s: %w", i, bet.ID, err)
		}
	}
	return tx.Commit()
}

// LoadOpenBets devuelve todas las apuestas no resueltas con sus piernas.
func (s *SQLiteStore) LoadOpenBets(ctx context.Context) ([]*domain.ParlayBet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, stake, net_stake, payout_basis, combined_price,
		       created_at, expires_at, phase, lost, resolved, paused
		FROM bets WHERE resolved = 0 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadOpenBets: query bets: %w", err)
	}
	defer rows.Close()

	var bets []*domain.ParlayBet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.LoadOpenBets: %w", err)
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.LoadOpenBets: rows: %w", err)
	}

	for _, bet := range bets {
		if err := s.loadLegs(ctx, bet); err != nil {
			return nil, err
		}
	}
	return bets, nil
}

// SaveLedger reemplaza el snapshot persistido del risk ledger.
func (s *SQLiteStore) SaveLedger(ctx context.Context, snap risk.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveLedger: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exposure`); err != nil {
		return fmt.Errorf("storage.SaveLedger: clear exposure: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM combo_exposure`); err != nil {
		return fmt.Errorf("storage.SaveLedger: clear combos: %w", err)
	}

	for marketID, byOutcome := range snap.Exposure {
		for outcome, amount := range byOutcome {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO exposure (market_id, outcome, amount) VALUES (?, ?, ?)`,
				marketID, int(outcome), amount.Dec(),
			)
			if err != nil {
				return fmt.Errorf("storage.SaveLedger: insert exposure %s: %w", marketID, err)
			}
		}
	}
	for key, amount := range snap.Combos {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO combo_exposure (combo_key, amount) VALUES (?, ?)`,
			key, amount.Dec(),
		)
		if err != nil {
			return fmt.Errorf("storage.SaveLedger: insert combo %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LoadLedger carga el último snapshot persistido del risk ledger.
func (s *SQLiteStore) LoadLedger(ctx context.Context) (risk.Snapshot, error) {
	snap := risk.Snapshot{
		Exposure: make(map[string]map[domain.Outcome]*uint256.Int),
		Combos:   make(map[string]*uint256.Int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT market_id, outcome, amount FROM exposure`)
	if err != nil {
		return snap, fmt.Errorf("storage.LoadLedger: query exposure: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var marketID, amount string
		var outcome int
		if err := rows.Scan(&marketID, &outcome, &amount); err != nil {
			return snap, fmt.Errorf("storage.LoadLedger: scan exposure: %w", err)
		}
		v, err := uint256.FromDecimal(amount)
		if err != nil {
			return snap, fmt.Errorf("storage.LoadLedger: amount %q: %w", amount, err)
		}
		byOutcome, ok := snap.Exposure[marketID]
		if !ok {
			byOutcome = make(map[domain.Outcome]*uint256.Int)
			snap.Exposure[marketID] = byOutcome
		}
		byOutcome[domain.Outcome(outcome)] = v
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("storage.LoadLedger: exposure rows: %w", err)
	}

	comboRows, err := s.db.QueryContext(ctx, `SELECT combo_key, amount FROM combo_exposure`)
	if err != nil {
		return snap, fmt.Errorf("storage.LoadLedger: query combos: %w", err)
	}
	defer comboRows.Close()
	for comboRows.Next() {
		var key, amount string
		if err := comboRows.Scan(&key, &amount); err != nil {
			return snap, fmt.Errorf("storage.LoadLedger: scan combo: %w", err)
		}
		v, err := uint256.FromDecimal(amount)
		if err != nil {
			return snap, fmt.Errorf("storage.LoadLedger: amount %q: %w", amount, err)
		}
		snap.Combos[key] = v
	}
	if err := comboRows.Err(); err != nil {
		return snap, fmt.Errorf("storage.LoadLedger: combo rows: %w", err)
	}
	return snap, nil
}

// Close cierra la conexión.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// loadLegs carga las piernas de una apuesta en orden.
func (s *SQLiteStore) loadLegs(ctx context.Context, bet *domain.ParlayBet) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, outcome, price, result
		FROM bet_legs WHERE bet_id = ? ORDER BY leg_index`, bet.ID)
	if err != nil {
		return fmt.Errorf("storage.loadLegs: query %s: %w", bet.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var marketID, price string
		var outcome, result int
		if err := rows.Scan(&marketID, &outcome, &price, &result); err != nil {
			return fmt.Errorf("storage.loadLegs: scan %s: %w", bet.ID, err)
		}
		p, err := uint256.FromDecimal(price)
		if err != nil {
			return fmt.Errorf("storage.loadLegs: price %q: %w", price, err)
		}
		bet.Legs = append(bet.Legs, domain.BetLeg{
			Leg:    domain.Leg{MarketID: marketID, Outcome: domain.Outcome(outcome)},
			Price:  p,
			Result: domain.LegResult(result),
		})
	}
	return rows.Err()
}

// scanBet lee una fila de bets (sin piernas).
func scanBet(rows *sql.Rows) (*domain.ParlayBet, error) {
	var (
		bet                                         domain.ParlayBet
		stake, netStake, payoutBasis, combinedPrice string
		createdAt, expiresAt                        time.Time
		phase, lost, resolved, paused               int
	)
	err := rows.Scan(&bet.ID, &bet.Owner, &stake, &netStake, &payoutBasis, &combinedPrice,
		&createdAt, &expiresAt, &phase, &lost, &resolved, &paused)
	if err != nil {
		return nil, fmt.Errorf("scan bet: %w", err)
	}

	if bet.Stake, err = uint256.FromDecimal(stake); err != nil {
		return nil, fmt.Errorf("stake %q: %w", stake, err)
	}
	if bet.NetStake, err = uint256.FromDecimal(netStake); err != nil {
		return nil, fmt.Errorf("net_stake %q: %w", netStake, err)
	}
	if bet.PayoutBasis, err = uint256.FromDecimal(payoutBasis); err != nil {
		return nil, fmt.Errorf("payout_basis %q: %w", payoutBasis, err)
	}
	if bet.CombinedPrice, err = uint256.FromDecimal(combinedPrice); err != nil {
		return nil, fmt.Errorf("combined_price %q: %w", combinedPrice, err)
	}

	bet.CreatedAt = createdAt
	bet.ExpiresAt = expiresAt
	bet.Phase = domain.Phase(phase)
	bet.Lost = lost != 0
	bet.Resolved = resolved != 0
	bet.Paused = paused != 0
	return &bet, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
