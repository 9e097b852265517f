package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"procurement-engine/internal/app"
	"procurement-engine/internal/core"
)

const usage = "Available: sync-rop, sync-quotations, alerts [level], stocks, balance <stock-id> <product-id>, order, status <id> <status>, receive <id>, cancel <id>"

// Run executes a one-shot CLI command. args is os.Args[1:]; the first
// element is the subcommand name. Order requests are read as JSON from in.
func Run(ctx context.Context, svc app.ApplicationService, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	switch args[0] {
	case "sync-rop", "rop":
		res, err := svc.SyncReorderPoints(ctx)
		if err != nil {
			return fmt.Errorf("reorder point sync failed: %w", err)
		}
		fmt.Fprintf(out, "Reorder points: %d pairs, %d changed, %d inadequate, %d newly critical.\n",
			res.Pairs, res.Changed, res.Inadequate, res.NewCritical)

	case "sync-quotations", "quotes":
		res, err := svc.SyncQuotations(ctx)
		if err != nil {
			return fmt.Errorf("quotation sync failed: %w", err)
		}
		fmt.Fprintf(out, "Quotations: %d created, %d updated, %d skipped.\n", res.Created, res.Updated, res.Skipped)

	case "alerts", "al":
		level := ""
		if len(args) > 1 {
			level = args[1]
		}
		alerts, err := svc.SearchAlerts(ctx, level)
		if err != nil {
			return fmt.Errorf("failed to list alerts: %w", err)
		}
		printAlerts(out, alerts)

	case "stocks", "st":
		stocks, err := svc.ListStocks(ctx)
		if err != nil {
			return fmt.Errorf("failed to list stocks: %w", err)
		}
		printStocks(out, stocks)

	case "balance", "bal":
		if len(args) < 3 {
			return fmt.Errorf("usage: app balance <stock-id> <product-id>")
		}
		stockID, err := parseID(args[1])
		if err != nil {
			return err
		}
		productID, err := parseID(args[2])
		if err != nil {
			return err
		}
		bal, err := svc.GetBalance(ctx, stockID, productID)
		if err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}
		fmt.Fprintf(out, "Stock #%d holds %d unit(s) of product #%d.\n", bal.StockID, bal.Quantity, bal.ProductID)

	case "order", "o":
		var req app.AutomaticOrderRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		res, err := svc.CreateAutomaticOrder(ctx, req)
		if err != nil {
			return fmt.Errorf("automatic order failed: %w", err)
		}
		return writeJSON(out, res)

	case "status":
		if len(args) < 3 {
			return fmt.Errorf("usage: app status <order-id> <status>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		order, err := svc.ChangeOrderStatus(ctx, id, args[2])
		if err != nil {
			return fmt.Errorf("status change failed: %w", err)
		}
		fmt.Fprintf(out, "Order #%d is now %s.\n", order.ID, order.Status)

	case "receive", "rcv":
		return orderCommand(ctx, args, out, "receipt", svc.ConfirmReceipt)

	case "cancel":
		return orderCommand(ctx, args, out, "cancellation", svc.CancelOrder)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func orderCommand(ctx context.Context, args []string, out io.Writer, what string, fn func(context.Context, int) (*core.Order, error)) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: app %s <order-id>", args[0])
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	order, err := fn(ctx, id)
	if err != nil {
		return fmt.Errorf("%s failed: %w", what, err)
	}
	fmt.Fprintf(out, "Order #%d is now %s (total %s).\n", order.ID, order.Status, order.TotalValue.StringFixed(2))
	return nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAlerts(out io.Writer, alerts []core.Alert) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 78))
	fmt.Fprintf(out, "  %-9s %-24s %-18s %8s %8s %7s\n", "LEVEL", "PRODUCT", "STOCK", "QTY", "ROP", "BELOW%")
	fmt.Fprintln(out, strings.Repeat("-", 78))
	for _, a := range alerts {
		fmt.Fprintf(out, "  %-9s %-24s %-18s %8d %8.2f %7.2f\n",
			a.Level, a.ProductName, a.StockName, a.CurrentQuantity, a.ROP, a.PercentBelowROP)
	}
	fmt.Fprintln(out, strings.Repeat("=", 78))
	fmt.Fprintf(out, "  %d alert(s)\n", len(alerts))
}

func printStocks(out io.Writer, stocks []core.StockLevel) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 74))
	fmt.Fprintf(out, "  %-20s %9s %9s %9s %9s %10s\n", "STOCK", "CAPACITY", "CURRENT", "FREE", "INBOUND", "OCCUPANCY")
	fmt.Fprintln(out, strings.Repeat("-", 74))
	for _, s := range stocks {
		fmt.Fprintf(out, "  %-20s %9d %9d %9d %9d %9.1f%%\n",
			s.Name, s.Capacity, s.CurrentQuantity, s.AvailableCapacity, s.InboundReserved, s.Occupancy)
	}
	fmt.Fprintln(out, strings.Repeat("=", 74))
}
