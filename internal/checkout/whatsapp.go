package checkout

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildWhatsAppLink builds a wa.me deep link with the order summary prefilled
// as the message text. Returns "" when no store phone is configured.
func BuildWhatsAppLink(phone string, o *Order) string {
	if phone == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hola! Quiero confirmar mi pedido %s:\n", o.Number)
	for _, l := range o.Lines {
		fmt.Fprintf(&b, "%d x %s (%s / %s)\n", l.Quantity, l.Name, l.Color, strings.ToUpper(l.Size))
	}
	fmt.Fprintf(&b, "Total: $%s", o.Total.StringFixed(2))

	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(b.String())
}
