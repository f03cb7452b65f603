package description

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minMerchantTokenLen drops one and two letter fragments.
const minMerchantTokenLen = 3

var tokenSeparators = regexp.MustCompile(`[\s/\-|.*,:;_#()\[\]+'"]+`)

// Payment-operation words and prepositions that never name a merchant.
var merchantStopwords = toSet(
	"COMPRA", "COMPRAS", "PAGO", "PAGOS", "CARGO", "ABONO", "RECIBO", "OPERACION",
	"TARJETA", "TARJ", "DEBITO", "CREDITO", "CONTACTLESS", "TPV", "POS", "DATAFONO",
	"EN", "A", "DE", "DEL", "LA", "EL", "LOS", "LAS", "Y", "CON", "POR", "PARA", "SIN",
	"PURCHASE", "PAYMENT", "CARD", "DEBIT", "CREDIT", "THE", "AND", "FOR", "FROM",
	"FECHA", "HORA", "EUR", "USD", "ONLINE", "INTERNET",
	PlaceholderCard, PlaceholderIBAN, PlaceholderPhone, PlaceholderAuth, PlaceholderRef,
)

// URL scaffolding and TLD-like fragments.
var urlTokens = toSet(
	"WWW", "HTTP", "HTTPS", "COM", "NET", "ORG", "ES", "EU", "IO", "CO", "UK",
	"DE", "FR", "IT", "PT", "NL", "BE", "INFO", "BIZ", "APP",
)

// ExtractMerchantTokens splits text into upper-cased merchant-name candidates,
// dropping stopwords, URL fragments, numbers and short tokens.
func ExtractMerchantTokens(text string) []string {
	tokens := []string{}
	for _, raw := range splitTokens(text) {
		tok := strings.ToUpper(raw)
		if utf8.RuneCountInString(tok) < minMerchantTokenLen {
			continue
		}
		if _, ok := merchantStopwords[tok]; ok {
			continue
		}
		if _, ok := urlTokens[tok]; ok {
			continue
		}
		if !strings.ContainsFunc(tok, unicode.IsLetter) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// DescriptionKey is the stable lookup key for user preferences: the merchant
// tokens of the sanitized description joined by single spaces.
func DescriptionKey(text string) string {
	return strings.Join(ExtractMerchantTokens(SanitizeDescription(text)), " ")
}

func splitTokens(text string) []string {
	parts := tokenSeparators.Split(strings.TrimSpace(text), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
