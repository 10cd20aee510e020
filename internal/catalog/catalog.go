// Package catalog holds the locale-selectable message catalogs. The usecase
// layer only ever returns message codes; rendering them into language-specific
// text happens at the transport boundary.
package catalog

// Code identifies a user-facing message independently of language.
type Code string

const (
	RegistrationsDisabled Code = "registrations_disabled"
	RegisterSuccess       Code = "register_success"

	InvitationsDisabled  Code = "invitations_disabled"
	InvitationsForbidden Code = "invitations_forbidden"
	InvitationsSuccess   Code = "invitations_success"

	ForgetDisabled Code = "forget_disabled"
	ForgetSuccess  Code = "forget_success"

	ResetDisabled Code = "reset_disabled"
	ResetSuccess  Code = "reset_success"

	EmailMissing           Code = "email_missing"
	EmailOrPasswordMissing Code = "email_or_password_missing"
	PasswordMissing        Code = "password_missing"
	EmailInvalid           Code = "email_invalid"
	EmailUsed              Code = "email_used"
	EmailUnknown           Code = "email_unknown"
	PasswordInvalid        Code = "password_invalid"
	AccountDisabled        Code = "account_disabled"
	TokenInvalid           Code = "token_invalid"
	TokenExpired           Code = "token_expired"
	NotAuthorized          Code = "not_authorized"
)

// Catalog maps message codes to display text for one language.
type Catalog map[Code]string

var english = Catalog{
	RegistrationsDisabled: "Registrations are disabled",
	RegisterSuccess:       "Account created",

	InvitationsDisabled:  "Invitations are disabled",
	InvitationsForbidden: "You're not allowed to send invitations",
	InvitationsSuccess:   "The user should receive an email soon with a confirmation of the invitation",

	ForgetDisabled: "Forget function is disabled",
	ForgetSuccess:  "Email to reset the password sent",

	ResetDisabled: "Reset function is disabled",
	ResetSuccess:  "Password reset",

	EmailMissing:           "Email missing",
	EmailOrPasswordMissing: "Email or password missing",
	PasswordMissing:        "Password missing",
	EmailInvalid:           "Email not valid",
	EmailUsed:              "Email already registered",
	EmailUnknown:           "Email not registered",
	PasswordInvalid:        "Invalid password",
	AccountDisabled:        "Account disabled",
	TokenInvalid:           "Token invalid",
	TokenExpired:           "Token expired",
	NotAuthorized:          "You're not allowed to perform this action",
}

var french = Catalog{
	RegistrationsDisabled: "L'inscription au service est désactivée",
	RegisterSuccess:       "Votre compte est créé",

	InvitationsDisabled:  "Le système d'invitation est désactivé",
	InvitationsForbidden: "Vous n'êtes pas autorisé à inviter vos amis",
	InvitationsSuccess:   "L'utilisateur devrait recevoir rapidement un email confirmant son invitation",

	ForgetDisabled: "La fonction d'oubli de mot de passe est désactivée",
	ForgetSuccess:  "Un email vous a été envoyé pour la réinitialisation de votre mot de passe",

	ResetDisabled: "La fonction de réinitialisation est désactivée",
	ResetSuccess:  "Votre mot de passe vient d'être réinitialisé",

	EmailMissing:           "Email manquant",
	EmailOrPasswordMissing: "Email ou mot de passe manquant",
	PasswordMissing:        "Mot de passe manquant",
	EmailInvalid:           "Email non valide",
	EmailUsed:              "Cet email est déjà enregistré",
	EmailUnknown:           "Email inconnu",
	PasswordInvalid:        "Mot de passe incorrect",
	AccountDisabled:        "Votre compte est désactivé",
	TokenInvalid:           "La clé de réinitialisation est invalide",
	TokenExpired:           "La clé de réinitialisation a expiré",
	NotAuthorized:          "Vous n'êtes pas autorisé à effectuer cette action",
}

var catalogs = map[string]Catalog{
	"en": english,
	"fr": french,
}

// For returns the catalog for a language tag, falling back to English.
func For(language string) Catalog {
	if c, ok := catalogs[language]; ok {
		return c
	}
	return english
}

// Languages lists the supported language tags.
func Languages() []string {
	return []string{"en", "fr"}
}

// Message renders a code. Unknown codes fall back to the English text, then to
// the raw code so a missing translation never produces an empty response.
func (c Catalog) Message(code Code) string {
	if msg, ok := c[code]; ok {
		return msg
	}
	if msg, ok := english[code]; ok {
		return msg
	}
	return string(code)
}
