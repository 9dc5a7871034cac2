package risk

// ledger.go — exposición agregada del engine.
//
// Dos stores con clave:
//   - exposure[market][outcome]: suma de stakes vivos sobre esa pierna.
//   - combos[key]: amplificación (payout − netStake) agregada por conjunto
//     exacto de mercados (clave canónica de domain.CombinationKey).
//
// Ambos contadores son monotónicos: crecen en cada buy admitido y NO se
// decrementan en el settlement normal — representan exposición worst-case
// hasta que el venue recalcula su propio cap por mercado. La única
// excepción es Revert, que deshace un Commit cuyo movimiento de fondos
// posterior falló, para que un buy rechazado no deje rastro.

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// ExposureInc es un incremento candidato sobre una pierna, con el límite que
// no debe superarse tras aplicarlo (el engine pasa 2× el cap del venue).
type ExposureInc struct {
	MarketID string
	Outcome  domain.Outcome
	Amount   *uint256.Int
	Cap      *uint256.Int
}

// ComboInc es un incremento candidato sobre una combinación de mercados.
type ComboInc struct {
	Key    string
	Amount *uint256.Int
	Cap    *uint256.Int
}

// Snapshot es el estado serializable del ledger para persistencia.
type Snapshot struct {
	Exposure map[string]map[domain.Outcome]*uint256.Int
	Combos   map[string]*uint256.Int
}

// Ledger es el punto de serialización de todas las mutaciones de exposición.
// Un único mutex cubre ambos stores: Commit valida y aplica todo o nada.
type Ledger struct {
	mu       sync.Mutex
	exposure map[string]map[domain.Outcome]*uint256.Int
	combos   map[string]*uint256.Int
}

// NewLedger crea un ledger vacío.
func NewLedger() *Ledger {
	return &Ledger{
		exposure: make(map[string]map[domain.Outcome]*uint256.Int),
		combos:   make(map[string]*uint256.Int),
	}
}

// Exposure devuelve la exposición actual de una pierna (copia; cero si no hay).
func (l *Ledger) Exposure(marketID string, outcome domain.Outcome) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.exposure[marketID][outcome]; ok {
		return cur.Clone()
	}
	return new(uint256.Int)
}

// ComboExposure devuelve la amplificación agregada de una combinación (copia).
func (l *Ledger) ComboExposure(key string) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.combos[key]; ok {
		return cur.Clone()
	}
	return new(uint256.Int)
}

// Check valida los incrementos contra los caps SIN aplicarlos. Lo usa el
// QuoteEngine para el veredicto de admisión; el resultado es advisory — el
// Commit del buy re-valida bajo el mismo mutex.
func (l *Ledger) Check(incs []ExposureInc, combo *ComboInc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(incs, combo)
}

// Commit re-valida y aplica todos los incrementos bajo el mutex: o se
// aplican todos o ninguno. Este es el punto de commit atómico del buy.
func (l *Ledger) Commit(incs []ExposureInc, combo *ComboInc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.check(incs, combo); err != nil {
		return err
	}

	for _, inc := range incs {
		byOutcome, ok := l.exposure[inc.MarketID]
		if !ok {
			byOutcome = make(map[domain.Outcome]*uint256.Int)
			l.exposure[inc.MarketID] = byOutcome
		}
		cur, ok := byOutcome[inc.Outcome]
		if !ok {
			cur = new(uint256.Int)
			byOutcome[inc.Outcome] = cur
		}
		cur.Add(cur, inc.Amount)
	}
	if combo != nil {
		cur, ok := l.combos[combo.Key]
		if !ok {
			cur = new(uint256.Int)
			l.combos[combo.Key] = cur
		}
		cur.Add(cur, combo.Amount)
	}
	return nil
}

// Revert deshace un Commit previo. SOLO para el camino de fallo del buy
// (el movimiento de fondos posterior al commit falló): restaura el estado
// byte a byte previo a la llamada rechazada.
func (l *Ledger) Revert(incs []ExposureInc, combo *ComboInc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, inc := range incs {
		if cur, ok := l.exposure[inc.MarketID][inc.Outcome]; ok {
			if inc.Amount.Gt(cur) {
				cur.Clear()
			} else {
				cur.Sub(cur, inc.Amount)
			}
		}
	}
	if combo != nil {
		if cur, ok := l.combos[combo.Key]; ok {
			if combo.Amount.Gt(cur) {
				cur.Clear()
			} else {
				cur.Sub(cur, combo.Amount)
			}
		}
	}
}

// Snapshot devuelve una copia profunda del estado para persistir.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Exposure: make(map[string]map[domain.Outcome]*uint256.Int, len(l.exposure)),
		Combos:   make(map[string]*uint256.Int, len(l.combos)),
	}
	for market, byOutcome := range l.exposure {
		cp := make(map[domain.Outcome]*uint256.Int, len(byOutcome))
		for o, v := range byOutcome {
			cp[o] = v.Clone()
		}
		snap.Exposure[market] = cp
	}
	for key, v := range l.combos {
		snap.Combos[key] = v.Clone()
	}
	return snap
}

// Restore reemplaza el estado del ledger con un snapshot persistido.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.exposure = make(map[string]map[domain.Outcome]*uint256.Int, len(snap.Exposure))
	for market, byOutcome := range snap.Exposure {
		cp := make(map[domain.Outcome]*uint256.Int, len(byOutcome))
		for o, v := range byOutcome {
			cp[o] = v.Clone()
		}
		l.exposure[market] = cp
	}
	l.combos = make(map[string]*uint256.Int, len(snap.Combos))
	for key, v := range snap.Combos {
		l.combos[key] = v.Clone()
	}
}

// check valida sin aplicar. Requiere l.mu.
func (l *Ledger) check(incs []ExposureInc, combo *ComboInc) error {
	for _, inc := range incs {
		cur := l.exposure[inc.MarketID][inc.Outcome]
		next := new(uint256.Int).Add(curOrZero(cur), inc.Amount)
		if inc.Cap != nil && next.Gt(inc.Cap) {
			return fmt.Errorf("%w: market %s outcome %d", domain.ErrMarketCapExceeded, inc.MarketID, inc.Outcome)
		}
	}
	if combo != nil {
		next := new(uint256.Int).Add(curOrZero(l.combos[combo.Key]), combo.Amount)
		if combo.Cap != nil && next.Gt(combo.Cap) {
			return fmt.Errorf("%w: combination %s", domain.ErrComboCapExceeded, combo.Key)
		}
	}
	return nil
}

func curOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
