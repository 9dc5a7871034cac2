package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CombinationKey devuelve el identificador canónico del CONJUNTO de mercados
// de un parlay: hash de los IDs ordenados, independiente del orden de entrada
// y de las posiciones elegidas. Se usa solo para el cap agregado por
// combinación de partidos.
func CombinationKey(marketIDs []string) string {
	ids := make([]string, len(marketIDs))
	copy(ids, marketIDs)
	sort.Strings(ids)

	h := sha256.Sum256([]byte(strings.Join(ids, "\x00")))
	return hex.EncodeToString(h[:])
}
