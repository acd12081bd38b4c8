package resources

import (
	"context"
	"fmt"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/controller"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/util"
)

// SettingsForm edits the platform settings record. There is exactly one
// record, so the form is always in edit mode once loaded.
type SettingsForm struct {
	deps    Deps
	dialog  *form.Dialog
	current models.Settings
	loaded  bool
}

func NewSettingsForm(d Deps) *SettingsForm {
	return &SettingsForm{deps: d, dialog: form.New(settingsFields())}
}

func settingsFields() []form.Field {
	return []form.Field{
		{Name: "appName", Label: "App name", Required: true},
		{Name: "appDescription", Label: "App description"},
		{Name: "supportEmail", Label: "Support email", Rules: "email"},
		{Name: "facebook", Label: "Facebook", Rules: "url"},
		{Name: "instagram", Label: "Instagram", Rules: "url"},
		{Name: "youtube", Label: "YouTube", Rules: "url"},
		{Name: "twitter", Label: "Twitter", Rules: "url"},
		{Name: "androidVersion", Label: "Android version", Required: true, Rules: "semver"},
		{Name: "iosVersion", Label: "iOS version", Required: true, Rules: "semver"},
		{Name: "isForceUpdate", Label: "Force update", Kind: form.Bool},
		{Name: "isMaintenanceMode", Label: "Maintenance mode", Kind: form.Bool},
		{Name: "welcomeBonus", Label: "Welcome bonus", Kind: form.Number},
		{Name: "adDisplayInterval", Label: "Ad display interval", Kind: form.Number},
		{Name: "privacyPolicy", Label: "Privacy policy"},
		{Name: "termsAndConditions", Label: "Terms and conditions"},
		{Name: "appLogo", Label: "App logo", Kind: form.File},
	}
}

func settingsValues(s models.Settings) form.Values {
	return form.Values{
		"appName":            s.AppName,
		"appDescription":     s.AppDescription,
		"supportEmail":       s.SupportEmail,
		"facebook":           s.Facebook,
		"instagram":          s.Instagram,
		"youtube":            s.YouTube,
		"twitter":            s.Twitter,
		"androidVersion":     s.AndroidVersion,
		"iosVersion":         s.IOSVersion,
		"isForceUpdate":      boolValue(s.IsForceUpdate),
		"isMaintenanceMode":  boolValue(s.IsMaintenanceMode),
		"welcomeBonus":       num(s.WelcomeBonus),
		"adDisplayInterval":  num(s.AdDisplayInterval),
		"privacyPolicy":      s.PrivacyPolicy,
		"termsAndConditions": s.TermsAndConditions,
		"appLogo":            s.AppLogo,
	}
}

// Load fetches the settings and opens the form on them.
func (s *SettingsForm) Load(ctx context.Context) error {
	res, err := s.deps.Client.Settings(ctx)
	if err := controller.Outcome(s.deps.Notifier, "fetch", "settings", res, err); err != nil {
		return err
	}
	settings, err := api.DecodeData[models.Settings](res)
	if err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	s.current = settings
	s.loaded = true
	s.dialog.OpenEdit(settings.ID, settingsValues(settings))
	return nil
}

// Current returns the settings as last loaded or saved.
func (s *SettingsForm) Current() models.Settings { return s.current }

// LogoURL is the resolved address of the current app logo.
func (s *SettingsForm) LogoURL() string { return s.deps.media(s.current.AppLogo) }

func (s *SettingsForm) Dialog() *form.Dialog { return s.dialog }

func (s *SettingsForm) Attach(field, path string) error {
	if err := util.ValidateUpload(path); err != nil {
		return err
	}
	return s.dialog.Attach(field, path)
}

// Submit validates and saves the whole record, then reloads it so the form
// reopens on what the backend stored.
func (s *SettingsForm) Submit(ctx context.Context) error {
	if !s.loaded {
		return fmt.Errorf("settings are not loaded")
	}
	draft := s.dialog.Draft()
	err := s.dialog.Submit(ctx, func(ctx context.Context, sub form.Submission) error {
		res, err := s.deps.Client.UpdateSettings(ctx, sub.Form())
		if err := controller.Outcome(s.deps.Notifier, "update", "settings", res, err); err != nil {
			return err
		}
		if s.deps.Notifier != nil {
			s.deps.Notifier.Success(controller.SuccessMessage(res, "Settings", "updated"))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		s.dialog.OpenEdit(s.current.ID, draft)
		return fmt.Errorf("settings saved but could not be reloaded: %w", err)
	}
	return nil
}
