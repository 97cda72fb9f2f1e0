package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rigup-sh/rigup/internal/facts"
	riguperrors "github.com/rigup-sh/rigup/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern  = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+$`)
	stepIDPattern  = regexp.MustCompile(`^[a-z0-9_]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("fact_ref", func(fl validator.FieldLevel) bool {
			ref := strings.TrimPrefix(fl.Field().String(), "!")
			for _, key := range facts.GuardKeys() {
				if ref == key {
					return true
				}
			}
			return false
		})

		validateInst = v
	})

	return validateInst
}

// ValidateManifest performs schema and cross-field validation on the manifest.
func ValidateManifest(manifest *Manifest) error {
	if manifest == nil {
		return riguperrors.NewValidationError("manifest", "manifest is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(manifest); err != nil {
		return convertValidationError(err)
	}

	if manifest.Requires.MinVersion != "" && !versionPattern.MatchString(manifest.Requires.MinVersion) {
		return riguperrors.NewValidationError("requires.min_version", fmt.Sprintf("must be major.minor, got %q", manifest.Requires.MinVersion), nil)
	}

	seen := make(map[string]struct{}, len(manifest.Steps))
	for i, step := range manifest.Steps {
		if _, exists := seen[step.ID]; exists {
			return riguperrors.NewValidationError(fieldForStep(i, "id"), fmt.Sprintf("duplicate step id %q", step.ID), nil)
		}
		seen[step.ID] = struct{}{}

		if err := ValidateStep(step); err != nil {
			return err
		}
	}

	for i, validation := range manifest.Validations {
		if err := validateValidation(validation, i); err != nil {
			return err
		}
	}

	return nil
}

// ValidateStep validates a single step independent of other manifest
// properties.
func ValidateStep(step Step) error {
	v := validatorInstance()
	if err := v.Struct(step); err != nil {
		return convertValidationError(err)
	}

	switch step.Action {
	case "apt":
		if step.Apt == nil {
			return riguperrors.NewValidationError(step.ID, "apt configuration is required", nil)
		}
		if !step.Apt.Update && !step.Apt.Upgrade && len(step.Apt.Packages) == 0 {
			return riguperrors.NewValidationError(step.ID, "apt step must update, upgrade, or install packages", nil)
		}
		if err := v.Struct(step.Apt); err != nil {
			return convertValidationError(err)
		}
	case "firewall":
		if step.Firewall == nil {
			return riguperrors.NewValidationError(step.ID, "firewall configuration is required", nil)
		}
		if err := v.Struct(step.Firewall); err != nil {
			return convertValidationError(err)
		}
	case "service":
		if step.Service == nil {
			return riguperrors.NewValidationError(step.ID, "service configuration is required", nil)
		}
		if err := v.Struct(step.Service); err != nil {
			return convertValidationError(err)
		}
	case "flatpak":
		if step.Flatpak == nil {
			return riguperrors.NewValidationError(step.ID, "flatpak configuration is required", nil)
		}
		if step.Flatpak.Remote == "" && len(step.Flatpak.Apps) == 0 {
			return riguperrors.NewValidationError(step.ID, "flatpak step must add a remote or install apps", nil)
		}
		if err := v.Struct(step.Flatpak); err != nil {
			return convertValidationError(err)
		}
	case "snap":
		if step.Snap == nil {
			return riguperrors.NewValidationError(step.ID, "snap configuration is required", nil)
		}
		if err := v.Struct(step.Snap); err != nil {
			return convertValidationError(err)
		}
	case "shellkit":
		if step.ShellKit == nil {
			return riguperrors.NewValidationError(step.ID, "shellkit configuration is required", nil)
		}
		if err := v.Struct(step.ShellKit); err != nil {
			return convertValidationError(err)
		}
	case "drivers":
		if step.Drivers == nil {
			return riguperrors.NewValidationError(step.ID, "drivers configuration is required", nil)
		}
		if err := v.Struct(step.Drivers); err != nil {
			return convertValidationError(err)
		}
	case "command":
		if step.Command == nil {
			return riguperrors.NewValidationError(step.ID, "command configuration is required", nil)
		}
		if err := v.Struct(step.Command); err != nil {
			return convertValidationError(err)
		}
	default:
		return riguperrors.NewValidationError(step.ID, fmt.Sprintf("unknown step action %q", step.Action), nil)
	}

	return nil
}

func validateValidation(val Validation, index int) error {
	v := validatorInstance()
	if err := v.Struct(val); err != nil {
		return convertValidationError(err)
	}

	switch val.Type {
	case "command_exists":
		if val.Command == "" {
			return riguperrors.NewValidationError(fieldForValidation(index, "command"), "command is required", nil)
		}
	case "file_exists":
		if val.Path == "" {
			return riguperrors.NewValidationError(fieldForValidation(index, "path"), "path is required", nil)
		}
	case "path_contains":
		if val.File == "" || val.Text == "" {
			return riguperrors.NewValidationError(fieldForValidation(index, "file"), "file and text are required", nil)
		}
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return riguperrors.NewValidationError(field, msg, err)
	}

	return riguperrors.NewValidationError("manifest", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}

func fieldForValidation(index int, field string) string {
	return fmt.Sprintf("validations[%d].%s", index, field)
}
