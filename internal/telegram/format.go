package telegram

import (
	"fmt"
	"strings"

	"coffee-machine/internal/machine"
	"coffee-machine/internal/menu"
	"coffee-machine/internal/metrics"
)

func formatMenu(drinks []menu.Drink) string {
	var sb strings.Builder
	sb.WriteString("📋 *Menu*\n\n")
	for _, d := range drinks {
		sb.WriteString(fmt.Sprintf("• *%s*: $%s\n", d.Name(), d.Cost().StringFixed(2)))
	}
	return sb.String()
}

func formatResources(st machine.State) string {
	var sb strings.Builder
	power := "ON"
	if !st.PoweredOn {
		power = "OFF"
	}
	sb.WriteString(fmt.Sprintf("⚙️ *Machine* (%s)\n\n", power))
	sb.WriteString(fmt.Sprintf("• Water: %dml\n", st.Inventory.Water))
	sb.WriteString(fmt.Sprintf("• Milk: %dml\n", st.Inventory.Milk))
	sb.WriteString(fmt.Sprintf("• Coffee: %dg\n", st.Inventory.Coffee))
	sb.WriteString(fmt.Sprintf("• Profit: $%s\n", st.Ledger.Profit.StringFixed(2)))

	sb.WriteString("\n🧾 *Recent orders*\n")
	if len(st.Ledger.History) == 0 {
		sb.WriteString("_No orders yet_\n")
	}
	for _, tx := range st.Ledger.History {
		sb.WriteString(fmt.Sprintf("• %s ($%s) %s\n", tx.Drink, tx.Cost.StringFixed(2), tx.Time))
	}
	return sb.String()
}

func formatReport(rep machine.Report) string {
	var sb strings.Builder
	sb.WriteString("📊 *Report*\n\n")
	sb.WriteString(fmt.Sprintf("Water: %dml\n", rep.Inventory.Water))
	sb.WriteString(fmt.Sprintf("Milk: %dml\n", rep.Inventory.Milk))
	sb.WriteString(fmt.Sprintf("Coffee: %dg\n", rep.Inventory.Coffee))
	sb.WriteString(fmt.Sprintf("Money: $%s\n", rep.Profit.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Orders: %d\n", rep.TotalOrders))
	return sb.String()
}

func formatMetrics(daily []metrics.DailySales, byDrink []metrics.DrinkSales, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Sales & Health Report*\n\n")

	sb.WriteString("🗓 *Last 7 days*\n")
	if len(daily) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range daily {
		sb.WriteString(fmt.Sprintf("• *%s*: %d orders ($%s)\n", d.Date, d.Orders, d.Revenue.StringFixed(2)))
	}

	if len(byDrink) > 0 {
		sb.WriteString("\n🏆 *Top drinks*\n")
		for _, d := range byDrink {
			sb.WriteString(fmt.Sprintf("• %s: %d\n", d.Drink, d.Orders))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
