package lang

import (
	"fmt"
	"strings"
)

// Messages is the spoken-text catalog for one language.
type Messages struct {
	Welcome          string
	Onboarding       string
	LanguageSwitched string
	BankingOpened    string
	ShoppingOpened   string
	Listening        string
	DidntUnderstand  string
	HelpHome         string
	BankingTitle     string
	BankingInstr     string
	CurrentBalance   string
	Dinars           string
	AmountPrompt     string
	RecipientPrompt  string
	ConfirmPrompt    string
	To               string
	SayYesOrNo       string
	TransferSuccess  string
	TransferCanceled string
	PaymentOffer     string
	PaymentSuccess   string
	PaymentCanceled  string
	ShoppingTitle    string
	ShoppingInstr    string
	WhatToAdd        string
	HowManyFor       string
	ItemAddedFmt     string
	ItemRemovedFmt   string
	WhatToRemove     string
	ItemNotFound     string
	AddFailed        string
	RemoveFailed     string
	Total            string
	Items            string
	BudgetWarning    string
	CartContainsFmt  string
	CheckoutStarting string
	CheckoutCanceled string
	CheckoutDoneFmt  string
	CheckoutPaying   string
	EffectFailed     string
	SlowModeOn       string
	SlowModeOff      string
}

var catalogs = map[Language]Messages{
	French: {
		Welcome:          `Bienvenue. Dites "banque" pour la banque ou "courses" pour la liste de courses.`,
		Onboarding:       `Bienvenue dans votre assistant vocal accessible. Utilisez des commandes vocales simples pour naviguer. Dites "aide" à tout moment pour obtenir de l'aide.`,
		LanguageSwitched: "Langue changée en français",
		BankingOpened:    "Module bancaire ouvert",
		ShoppingOpened:   "Liste de courses ouverte",
		Listening:        "Je vous écoute",
		DidntUnderstand:  "Je n'ai pas compris. Voulez-vous répéter ou obtenir de l'aide ?",
		HelpHome:         `Vous êtes sur l'écran d'accueil. Vous pouvez dire "banque" pour les services bancaires, "courses" pour la liste de courses, "aide" pour l'aide, ou "répéter" pour réentendre le message.`,
		BankingTitle:     "Assistant Bancaire",
		BankingInstr:     `Dites "solde" pour consulter votre solde, ou "virement" pour faire un virement.`,
		CurrentBalance:   "Votre solde actuel est de",
		Dinars:           "dinars",
		AmountPrompt:     "Quel montant voulez-vous transférer? Dites le montant en dinars.",
		RecipientPrompt:  "À qui voulez-vous envoyer cet argent? Dites le nom du destinataire.",
		ConfirmPrompt:    "Confirmez-vous le virement de",
		To:               "vers",
		SayYesOrNo:       `Dites "oui" pour confirmer ou "non" pour annuler.`,
		TransferSuccess:  "Virement effectué avec succès",
		TransferCanceled: "Virement annulé",
		PaymentOffer:     "Voulez-vous effectuer le virement de %s dinars avec le paiement sécurisé ?",
		PaymentSuccess:   "Paiement effectué avec succès",
		PaymentCanceled:  "Paiement annulé",
		ShoppingTitle:    "Liste de Courses",
		ShoppingInstr:    `Dites "ajouter" suivi du nom de l'article, ou "retirer" suivi du nom pour le supprimer.`,
		WhatToAdd:        "Quel article voulez-vous ajouter?",
		HowManyFor:       "Combien pour %s ?",
		ItemAddedFmt:     "%d %s ajouté à %s dinars. Total actuel = %s dinars",
		ItemRemovedFmt:   "%s retiré du panier",
		WhatToRemove:     "Quel article voulez-vous retirer?",
		ItemNotFound:     "Article non trouvé",
		AddFailed:        "Erreur lors de l'ajout",
		RemoveFailed:     "Erreur lors de la suppression",
		Total:            "Total",
		Items:            "articles",
		BudgetWarning:    "Attention, votre total dépasse le budget suggéré de",
		CartContainsFmt:  "Votre panier contient : %s. Total %s dinars. Voulez-vous payer maintenant ?",
		CheckoutStarting: "Très bien, je lance le paiement sécurisé.",
		CheckoutCanceled: "D'accord, paiement annulé. Que voulez-vous faire ?",
		CheckoutDoneFmt:  "Paiement réussi. Nouveau solde : %s dinars",
		CheckoutPaying:   "Paiement du panier en cours",
		EffectFailed:     "Erreur de connexion",
		SlowModeOn:       "Mode lent activé",
		SlowModeOff:      "Mode normal activé",
	},
	Arabic: {
		Welcome:          `مرحبا. قل "بنك" للخدمات المصرفية أو "تسوق" لقائمة التسوق.`,
		Onboarding:       `مرحبًا بك في مساعدك الصوتي الشامل. استخدم أوامر صوتية بسيطة للتنقل. قل "مساعدة" في أي وقت للحصول على المساعدة.`,
		LanguageSwitched: "تم تغيير اللغة إلى العربية",
		BankingOpened:    "تم فتح الخدمات المصرفية",
		ShoppingOpened:   "تم فتح قائمة التسوق",
		Listening:        "أنا أستمع",
		DidntUnderstand:  "لم أفهم. هل تريد تكرار أو الحصول على المساعدة؟",
		HelpHome:         `أنت في الشاشة الرئيسية. يمكنك قول "بنك" للخدمات المصرفية، "تسوق" لقائمة التسوق، "مساعدة" للمساعدة، أو "كرر" لإعادة سماع الرسالة.`,
		BankingTitle:     "المساعد المصرفي",
		BankingInstr:     `قل "رصيد" للتحقق من رصيدك، أو "تحويل" لإجراء تحويل.`,
		CurrentBalance:   "رصيدك الحالي هو",
		Dinars:           "دينار",
		AmountPrompt:     "ما هو المبلغ الذي تريد تحويله؟ قل المبلغ بالدينار.",
		RecipientPrompt:  "لمن تريد إرسال هذا المبلغ؟ قل اسم المستلم.",
		ConfirmPrompt:    "هل تؤكد تحويل",
		To:               "إلى",
		SayYesOrNo:       `قل "نعم" للتأكيد أو "لا" للإلغاء.`,
		TransferSuccess:  "تم التحويل بنجاح",
		TransferCanceled: "تم إلغاء التحويل",
		PaymentOffer:     "هل تريد إتمام تحويل %s دينار عبر الدفع الآمن؟",
		PaymentSuccess:   "تم الدفع بنجاح",
		PaymentCanceled:  "تم إلغاء الدفع",
		ShoppingTitle:    "قائمة التسوق",
		ShoppingInstr:    `قل "إضافة" متبوعًا باسم العنصر، أو "إزالة" متبوعًا بالاسم لحذفه.`,
		WhatToAdd:        "ما هو العنصر الذي تريد إضافته؟",
		HowManyFor:       "كم الكمية ل %s ؟",
		ItemAddedFmt:     "تمت إضافة %d %s بسعر %s دينار. المجموع الحالي = %s دينار",
		ItemRemovedFmt:   "تمت إزالة %s من السلة",
		WhatToRemove:     "ما هو العنصر الذي تريد إزالته؟",
		ItemNotFound:     "العنصر غير موجود",
		AddFailed:        "خطأ أثناء الإضافة",
		RemoveFailed:     "خطأ أثناء الإزالة",
		Total:            "المجموع",
		Items:            "عناصر",
		BudgetWarning:    "تنبيه، المجموع يتجاوز الميزانية المقترحة",
		CartContainsFmt:  "سلتك تحتوي على : %s. المجموع %s دينار. هل تريد الدفع الآن؟",
		CheckoutStarting: "حسناً، سأبدأ الدفع الآمن.",
		CheckoutCanceled: "حسناً، تم إلغاء الدفع. ماذا تريد أن تفعل؟",
		CheckoutDoneFmt:  "تم الدفع. رصيدك الجديد %s دينار",
		CheckoutPaying:   "جاري دفع السلة",
		EffectFailed:     "خطأ في الاتصال",
		SlowModeOn:       "تم تفعيل الوضع البطيء",
		SlowModeOff:      "تم تفعيل الوضع العادي",
	},
	English: {
		Welcome:          `Welcome. Say "bank" for banking or "shopping" for the shopping list.`,
		Onboarding:       `Welcome to your accessible voice assistant. Use simple voice commands to navigate. Say "help" at any time for assistance.`,
		LanguageSwitched: "Language switched to English",
		BankingOpened:    "Banking module opened",
		ShoppingOpened:   "Shopping list opened",
		Listening:        "I am listening",
		DidntUnderstand:  "I didn't understand. Would you like to repeat or get help?",
		HelpHome:         `You are on the home screen. You can say "bank" for banking services, "shopping" for shopping list, "help" for assistance, or "repeat" to hear the message again.`,
		BankingTitle:     "Banking Assistant",
		BankingInstr:     `Say "balance" to check your balance, or "transfer" to make a transfer.`,
		CurrentBalance:   "Your current balance is",
		Dinars:           "dinars",
		AmountPrompt:     "What amount would you like to transfer? Say the amount in dinars.",
		RecipientPrompt:  "Who would you like to send this money to? Say the recipient name.",
		ConfirmPrompt:    "Do you confirm the transfer of",
		To:               "to",
		SayYesOrNo:       `Say "yes" to confirm or "no" to cancel.`,
		TransferSuccess:  "Transfer completed successfully",
		TransferCanceled: "Transfer canceled",
		PaymentOffer:     "Would you like to complete the transfer of %s dinars with secure payment?",
		PaymentSuccess:   "Payment completed successfully",
		PaymentCanceled:  "Payment canceled",
		ShoppingTitle:    "Shopping List",
		ShoppingInstr:    `Say "add" followed by the item name, or "remove" followed by the name to delete it.`,
		WhatToAdd:        "What item would you like to add?",
		HowManyFor:       "How many for %s?",
		ItemAddedFmt:     "%d %s added at %s dinars. Current total = %s dinars",
		ItemRemovedFmt:   "%s removed from cart",
		WhatToRemove:     "Which item would you like to remove?",
		ItemNotFound:     "Item not found",
		AddFailed:        "Error while adding",
		RemoveFailed:     "Error while removing",
		Total:            "Total",
		Items:            "items",
		BudgetWarning:    "Warning, your total exceeds the suggested budget of",
		CartContainsFmt:  "Your cart contains: %s. Total %s dinars. Do you want to pay now?",
		CheckoutStarting: "Okay, starting secure payment.",
		CheckoutCanceled: "Okay, payment canceled. What would you like to do?",
		CheckoutDoneFmt:  "Payment successful. New balance %s dinars",
		CheckoutPaying:   "Processing cart payment",
		EffectFailed:     "Connection error",
		SlowModeOn:       "Slow mode activated",
		SlowModeOff:      "Normal mode activated",
	},
}

// Catalog returns the message catalog for l, falling back to the
// default language when l is unknown.
func Catalog(l Language) Messages {
	if m, ok := catalogs[l]; ok {
		return m
	}
	return catalogs[Default]
}

// Amount renders a monetary value the way the assistant speaks it:
// two decimals, trailing zeros trimmed for whole values.
func Amount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// BalanceMessage composes the spoken balance readout.
func (m Messages) BalanceMessage(balance float64) string {
	return fmt.Sprintf("%s %s %s", m.CurrentBalance, Amount(balance), m.Dinars)
}

// ConfirmTransferMessage composes the transfer confirmation prompt.
func (m Messages) ConfirmTransferMessage(amount float64, recipient string) string {
	return fmt.Sprintf("%s %s %s %s %s. %s",
		m.ConfirmPrompt, Amount(amount), m.Dinars, m.To, recipient, m.SayYesOrNo)
}

// PaymentOfferMessage composes the payment offer for a transfer amount.
func (m Messages) PaymentOfferMessage(amount float64) string {
	return fmt.Sprintf(m.PaymentOffer, Amount(amount))
}

// ItemAddedMessage composes the add confirmation with the running total.
func (m Messages) ItemAddedMessage(qty int, name string, price, total float64) string {
	return fmt.Sprintf(m.ItemAddedFmt, qty, name, Amount(price), Amount(total))
}

// TotalMessage composes the total readout with the item count.
func (m Messages) TotalMessage(total float64, count int) string {
	return fmt.Sprintf("%s: %.2f %s. %d %s", m.Total, total, m.Dinars, count, m.Items)
}

// BudgetWarningMessage composes the over-budget warning.
func (m Messages) BudgetWarningMessage(budget float64) string {
	return fmt.Sprintf("%s %s %s", m.BudgetWarning, Amount(budget), m.Dinars)
}

// CartSummaryMessage composes the checkout offer from a cart resume.
func (m Messages) CartSummaryMessage(resume string, total float64) string {
	return fmt.Sprintf(m.CartContainsFmt, resume, Amount(total))
}

// CheckoutDoneMessage composes the post-payment balance announcement.
func (m Messages) CheckoutDoneMessage(newBalance float64) string {
	return fmt.Sprintf(m.CheckoutDoneFmt, Amount(newBalance))
}
