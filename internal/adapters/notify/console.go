package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
)

// Console implementa ports.EventSink escribiendo eventos a stdout, y sabe
// imprimir el estado de las apuestas abiertas en tabla o en modo compacto.
type Console struct {
	out   io.Writer
	table bool
}

var _ ports.EventSink = (*Console)(nil)

// NewConsole crea un sink que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un sink para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Emit imprime un evento en una línea.
func (c *Console) Emit(_ context.Context, ev domain.Event) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", ev.At.Format("15:04:05"), ev.Type)
	if ev.BetID != "" {
		fmt.Fprintf(&sb, " bet=%s", shortID(ev.BetID))
	}
	if ev.Account != "" {
		fmt.Fprintf(&sb, " account=%s", ev.Account)
	}
	if ev.Amount != nil {
		fmt.Fprintf(&sb, " amount=%s", domain.FormatFix(ev.Amount))
	}
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	_, err := fmt.Fprintln(c.out, sb.String())
	return err
}

// PrintBets imprime las apuestas abiertas en el modo configurado.
func (c *Console) PrintBets(bets []*domain.ParlayBet) {
	if len(bets) == 0 {
		fmt.Fprintf(c.out, "[%s] no open bets\n", time.Now().Format("15:04:05"))
		return
	}
	if c.table {
		c.printTable(bets)
	} else {
		c.printCompact(bets)
	}
}

// printCompact imprime un resumen en una línea.
func (c *Console) printCompact(bets []*domain.ParlayBet) {
	trading, maturity := 0, 0
	for _, b := range bets {
		switch b.Phase {
		case domain.PhaseMaturity:
			maturity++
		default:
			trading++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d open bets | trading:%d maturity:%d",
		time.Now().Format("15:04:05"), len(bets), trading, maturity)

	shown := 0
	for _, b := range bets {
		if shown >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s %dL stake:%s basis:%s",
			shortID(b.ID), len(b.Legs), domain.FormatFix(b.Stake), domain.FormatFix(b.PayoutBasis))
		shown++
	}
	fmt.Fprintln(c.out, sb.String())
}

// printTable imprime la tabla completa de apuestas abiertas.
func (c *Console) printTable(bets []*domain.ParlayBet) {
	fmt.Fprintf(c.out, "\n[%s] %d open bets\n", time.Now().Format("15:04:05"), len(bets))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Bet", "Owner", "Legs", "Stake", "Net", "Price", "Basis", "Phase", "Expires")

	for i, b := range bets {
		legsLabel := fmt.Sprintf("%d", len(b.Legs))
		resolved := 0
		for _, l := range b.Legs {
			if l.Result != domain.ResultPending {
				resolved++
			}
		}
		if resolved > 0 {
			legsLabel = fmt.Sprintf("%d (%d ok)", len(b.Legs), resolved)
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			shortID(b.ID),
			b.Owner,
			legsLabel,
			domain.FormatFix(b.Stake),
			domain.FormatFix(b.NetStake),
			domain.FormatFix(b.CombinedPrice),
			domain.FormatFix(b.PayoutBasis),
			b.Phase.String(),
			b.ExpiresAt.Format("2006-01-02"),
		)
	}
	table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
