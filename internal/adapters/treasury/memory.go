package treasury

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
)

// Pool es un CollateralPool en memoria para dry-run y tests: cuentas con
// balance en token de settlement, un balance libre del pool y reservas por
// apuesta.
type Pool struct {
	mu       sync.Mutex
	accounts map[string]*uint256.Int
	free     *uint256.Int
	reserved map[string]*uint256.Int
}

var _ ports.CollateralPool = (*Pool)(nil)

// NewPool crea un pool vacío.
func NewPool() *Pool {
	return &Pool{
		accounts: make(map[string]*uint256.Int),
		free:     new(uint256.Int),
		reserved: make(map[string]*uint256.Int),
	}
}

// Fund acredita balance a una cuenta.
func (p *Pool) Fund(account string, amount *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credit(account, amount)
}

// Seed añade balance libre directamente al pool (capital de la casa).
func (p *Pool) Seed(amount *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free.Add(p.free, amount)
}

// AccountBalance devuelve el balance de una cuenta (copia).
func (p *Pool) AccountBalance(account string) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.accounts[account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// Reserved devuelve la reserva viva de una apuesta (copia; cero si no hay).
func (p *Pool) Reserved(betID string) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.reserved[betID]; ok {
		return r.Clone()
	}
	return new(uint256.Int)
}

func (p *Pool) Collect(_ context.Context, from string, amount *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bal, ok := p.accounts[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("treasury.Pool: insufficient balance for %s", from)
	}
	bal.Sub(bal, amount)
	p.free.Add(p.free, amount)
	return nil
}

func (p *Pool) Reserve(_ context.Context, betID string, amount *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.reserved[betID]; ok {
		return fmt.Errorf("treasury.Pool: bet %s already reserved", betID)
	}
	if p.free.Lt(amount) {
		return fmt.Errorf("treasury.Pool: insufficient free balance to reserve %s", domain.FormatFix(amount))
	}
	p.free.Sub(p.free, amount)
	p.reserved[betID] = amount.Clone()
	return nil
}

func (p *Pool) Release(_ context.Context, betID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.reserved[betID]
	if !ok {
		return fmt.Errorf("treasury.Pool: no reserve for bet %s", betID)
	}
	delete(p.reserved, betID)
	p.free.Add(p.free, r)
	return nil
}

func (p *Pool) Pay(_ context.Context, to string, amount *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.free.Lt(amount) {
		return fmt.Errorf("treasury.Pool: insufficient free balance to pay %s", domain.FormatFix(amount))
	}
	p.free.Sub(p.free, amount)
	p.credit(to, amount)
	return nil
}

func (p *Pool) Balance(_ context.Context) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free.Clone(), nil
}

// credit requiere p.mu.
func (p *Pool) credit(account string, amount *uint256.Int) {
	bal, ok := p.accounts[account]
	if !ok {
		bal = new(uint256.Int)
		p.accounts[account] = bal
	}
	bal.Add(bal, amount)
}

// Referrals es un ReferralLedger en memoria. El primer registro por bettor
// gana; los siguientes son no-op.
type Referrals struct {
	mu        sync.Mutex
	referrers map[string]string
}

var _ ports.ReferralLedger = (*Referrals)(nil)

// NewReferrals crea un ledger de referidos vacío.
func NewReferrals() *Referrals {
	return &Referrals{referrers: make(map[string]string)}
}

func (r *Referrals) ReferrerOf(_ context.Context, bettor string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.referrers[bettor], nil
}

func (r *Referrals) Record(_ context.Context, bettor, referrer string) error {
	if bettor == "" || referrer == "" || bettor == referrer {
		return fmt.Errorf("treasury.Referrals: invalid pair %q -> %q", bettor, referrer)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.referrers[bettor]; !ok {
		r.referrers[bettor] = referrer
	}
	return nil
}

// Ramp convierte entre colaterales y token de settlement a tipos fijos,
// contra el mismo Pool. Los balances en otros assets se llevan aparte.
type Ramp struct {
	pool *Pool

	mu     sync.Mutex
	rates  map[string]*uint256.Int // asset -> settlement por unidad (1e18)
	assets map[string]map[string]*uint256.Int
}

var _ ports.Ramp = (*Ramp)(nil)

// NewRamp crea un ramp sobre el pool dado.
func NewRamp(pool *Pool) *Ramp {
	return &Ramp{
		pool:   pool,
		rates:  make(map[string]*uint256.Int),
		assets: make(map[string]map[string]*uint256.Int),
	}
}

// SetRate fija el tipo de conversión de un asset (settlement por unidad).
func (r *Ramp) SetRate(asset string, rate *uint256.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[asset] = rate.Clone()
}

// FundAsset acredita balance de un asset no-settlement a una cuenta.
func (r *Ramp) FundAsset(account, asset string, amount *uint256.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	by, ok := r.assets[account]
	if !ok {
		by = make(map[string]*uint256.Int)
		r.assets[account] = by
	}
	cur, ok := by[asset]
	if !ok {
		cur = new(uint256.Int)
		by[asset] = cur
	}
	cur.Add(cur, amount)
}

// AssetBalance devuelve el balance de un asset de una cuenta (copia).
func (r *Ramp) AssetBalance(account, asset string) *uint256.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.assets[account][asset]; ok {
		return cur.Clone()
	}
	return new(uint256.Int)
}

// ToSettlement debita amount del asset de from, lo convierte al tipo vigente
// y deposita el resultado como balance libre del pool.
func (r *Ramp) ToSettlement(_ context.Context, from, asset string, amount *uint256.Int) (*uint256.Int, error) {
	r.mu.Lock()
	rate, ok := r.rates[asset]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("treasury.Ramp: no rate for asset %s", asset)
	}
	bal, ok := r.assets[from][asset]
	if !ok || bal.Lt(amount) {
		r.mu.Unlock()
		return nil, fmt.Errorf("treasury.Ramp: insufficient %s balance for %s", asset, from)
	}
	bal.Sub(bal, amount)
	got := domain.MulFix(amount, rate)
	r.mu.Unlock()

	r.pool.Seed(got)
	return got, nil
}

// FromSettlement retira amount del balance libre del pool, lo convierte y
// acredita el asset a to.
func (r *Ramp) FromSettlement(_ context.Context, to, asset string, amount *uint256.Int) (*uint256.Int, error) {
	r.mu.Lock()
	rate, ok := r.rates[asset]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("treasury.Ramp: no rate for asset %s", asset)
	}

	r.pool.mu.Lock()
	if r.pool.free.Lt(amount) {
		r.pool.mu.Unlock()
		return nil, fmt.Errorf("treasury.Ramp: insufficient pool balance")
	}
	r.pool.free.Sub(r.pool.free, amount)
	r.pool.mu.Unlock()

	delivered := domain.DivFix(amount, rate)
	r.FundAsset(to, asset, delivered)
	return delivered, nil
}
