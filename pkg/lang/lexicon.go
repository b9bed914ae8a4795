package lang

import "strings"

// Keyword lists for command matching. Matching is case-insensitive
// substring containment; module keywords are matched across all
// languages so "bank" works even while the interface speaks French.

var (
	switchFrench  = []string{"passer en français", "français"}
	switchArabic  = []string{"حول إلى العربية", "عربي"}
	switchEnglish = []string{"switch to english", "english"}

	bankingKeywords  = []string{"banque", "bank", "بنك"}
	shoppingKeywords = []string{"course", "shopping", "تسوق"}
	homeKeywords     = []string{"accueil", "home", "رئيسية"}
	repeatKeywords   = []string{"répéter", "repeat", "كرر"}
	helpKeywords     = []string{"aide", "help", "مساعدة"}
	settingsKeywords = []string{"paramètre", "settings", "إعدادات"}
	listenKeywords   = []string{"écouter", "listen", "استمع"}

	balanceKeywords  = []string{"solde", "balance", "رصيد"}
	transferKeywords = []string{"virement", "transfer", "تحويل"}

	addKeywords      = []string{"ajouter", "add", "إضافة"}
	removeKeywords   = []string{"retirer", "remove", "supprimer", "إزالة"}
	totalKeywords    = []string{"total", "مجموع"}
	checkoutKeywords = []string{"payer", "checkout", "خلص", "دفع"}

	affirmativeTokens = []string{"oui", "yes", "نعم"}
	negativeTokens    = []string{"non", "no", "لا"}
)

// SwitchKeywords returns the language-switch phrases for target.
func SwitchKeywords(target Language) []string {
	switch target {
	case Arabic:
		return switchArabic
	case English:
		return switchEnglish
	default:
		return switchFrench
	}
}

func BankingKeywords() []string  { return bankingKeywords }
func ShoppingKeywords() []string { return shoppingKeywords }
func HomeKeywords() []string     { return homeKeywords }
func RepeatKeywords() []string   { return repeatKeywords }
func HelpKeywords() []string     { return helpKeywords }
func SettingsKeywords() []string { return settingsKeywords }
func ListenKeywords() []string   { return listenKeywords }

func BalanceKeywords() []string  { return balanceKeywords }
func TransferKeywords() []string { return transferKeywords }

func AddKeywords() []string      { return addKeywords }
func RemoveKeywords() []string   { return removeKeywords }
func TotalKeywords() []string    { return totalKeywords }
func CheckoutKeywords() []string { return checkoutKeywords }

// ContainsAny reports whether the lowercased text contains any of the
// given keywords.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsAffirmative reports whether text carries a yes-token in any language.
func IsAffirmative(text string) bool {
	return ContainsAny(text, affirmativeTokens)
}

// IsNegative reports whether text carries a no-token in any language.
func IsNegative(text string) bool {
	return ContainsAny(text, negativeTokens)
}
