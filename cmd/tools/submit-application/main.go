// cmd/tools/submit-application/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"loan-intake/internal/common/config"
	apperrors "loan-intake/internal/common/errors"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/intake/controller"
	"loan-intake/internal/intake/validator"
	"loan-intake/internal/models"
	"loan-intake/internal/scoring"
)

type formFlags struct {
	config           *string
	file             *string
	age              *string
	income           *string
	homeOwnership    *string
	employmentLength *string
	loanAmount       *string
	defaultOnFile    *string
	loanIntent       *string
}

func registerFormFlags(fs *flag.FlagSet) *formFlags {
	return &formFlags{
		config:           fs.String("config", "", "Config file whose validation.bounds apply (default: built-in bounds)"),
		file:             fs.String("file", "", "JSON file with the raw form (fields as in the API)"),
		age:              fs.String("age", "", "Applicant age"),
		income:           fs.String("income", "", "Annual income"),
		homeOwnership:    fs.String("home-ownership", "rent", "rent, mortgage, own or other"),
		employmentLength: fs.String("employment-length", "", "Employment length in years"),
		loanAmount:       fs.String("loan-amount", "", "Requested loan amount"),
		defaultOnFile:    fs.String("default-on-file", "no", "yes or no"),
		loanIntent:       fs.String("loan-intent", "", "debt_consolidation, personal, education, medical, venture or home_improvement"),
	}
}

// input builds the form from -file, then applies any explicitly set flag.
func (f *formFlags) input(fs *flag.FlagSet) (models.RawInput, error) {
	raw := models.NewRawInput()
	if *f.file != "" {
		data, err := os.ReadFile(*f.file)
		if err != nil {
			return raw, err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return raw, fmt.Errorf("parse %s: %w", *f.file, err)
		}
	}

	byFlag := map[string]struct {
		field string
		value *string
	}{
		"age":               {models.FieldAge, f.age},
		"income":            {models.FieldIncome, f.income},
		"home-ownership":    {models.FieldHomeOwnership, f.homeOwnership},
		"employment-length": {models.FieldEmploymentLength, f.employmentLength},
		"loan-amount":       {models.FieldLoanAmount, f.loanAmount},
		"default-on-file":   {models.FieldDefaultOnFile, f.defaultOnFile},
		"loan-intent":       {models.FieldLoanIntent, f.loanIntent},
	}
	var setErr error
	fs.Visit(func(fl *flag.Flag) {
		if m, ok := byFlag[fl.Name]; ok && setErr == nil {
			setErr = raw.Set(m.field, *m.value)
		}
	})
	return raw, setErr
}

// loadSettings returns the validator for the form and the config it came
// from; cfg is nil when no config file is given.
func (f *formFlags) loadSettings() (*validator.Validator, *config.Config, error) {
	if *f.config == "" {
		return validator.New(validator.DefaultBounds()), nil, nil
	}
	cfg, err := config.LoadFromFile(*f.config)
	if err != nil {
		return nil, nil, err
	}
	return validator.New(validator.BoundsFromConfig(cfg.Validation.Bounds)), cfg, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func main() {
	_ = godotenv.Load()

	submitCmd := flag.NewFlagSet("submit", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	submitForm := registerFormFlags(submitCmd)
	baseURL := submitCmd.String("url", os.Getenv("SCORING_SERVICE_URL"), "Scoring service base URL (default: scoring.base_url from -config)")
	timeout := submitCmd.Duration("timeout", scoring.DefaultTimeout, "Scoring request timeout")
	verbose := submitCmd.Bool("v", false, "Log request details to stderr")

	validateForm := registerFormFlags(validateCmd)

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "submit":
		submitCmd.Parse(os.Args[2:])
		v, cfg, err := submitForm.loadSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if *baseURL == "" && cfg != nil {
			*baseURL = cfg.Scoring.BaseURL
		}
		if *baseURL == "" {
			fmt.Fprintln(os.Stderr, "Error: -url or SCORING_SERVICE_URL is required.")
			submitCmd.Usage()
			os.Exit(1)
		}
		raw, err := submitForm.input(submitCmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading form: %v\n", err)
			os.Exit(1)
		}
		os.Exit(submit(raw, v, *baseURL, *timeout, *verbose))

	case "validate":
		validateCmd.Parse(os.Args[2:])
		v, _, err := validateForm.loadSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		raw, err := validateForm.input(validateCmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading form: %v\n", err)
			os.Exit(1)
		}
		result, ok := preview(v, raw)
		printJSON(result)
		if !ok {
			os.Exit(1)
		}

	default:
		help()
		os.Exit(1)
	}
}

// preview validates raw and describes the outcome: the wire payload, or the
// error the form would show.
func preview(v *validator.Validator, raw models.RawInput) (map[string]interface{}, bool) {
	app, err := v.Validate(raw)
	if err != nil {
		stdErr := apperrors.Normalize(err)
		return map[string]interface{}{
			"valid":   false,
			"code":    stdErr.Code,
			"field":   stdErr.Field,
			"message": apperrors.UserMessage(stdErr),
		}, false
	}
	return map[string]interface{}{"valid": true, "payload": scoring.NewPayload(*app)}, true
}

func submit(raw models.RawInput, v *validator.Validator, baseURL string, timeout time.Duration, verbose bool) int {
	log := logger.NewNoOpLogger()
	if verbose {
		log = logger.NewStructured("debug", "console", "stderr")
	}

	client := scoring.NewClient(scoring.Config{BaseURL: baseURL, Timeout: timeout}, log, nil)
	ctrl, err := controller.New(controller.Options{Scorer: client, Validator: v, Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	final, err := ctrl.Submit(context.Background(), raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	printJSON(models.ViewOf(final))
	if _, failed := final.(models.Failed); failed {
		return 1
	}
	return 0
}

func help() {
	fmt.Println("Usage: submit-application <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  submit    Validate the form and send it to the scoring service")
	fmt.Println("  validate  Validate the form and print the outbound payload")
	fmt.Println("Run 'submit-application <command> -h' for options.")
}
