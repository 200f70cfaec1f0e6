// Package logrepo is a logging facade. Application code emits an event once
// and a Repository fans it out to any number of adapters (console, file,
// Sentry, DataDog, zap, zerolog, slog, or an in-memory double) after
// sanitizing it and, optionally, rendering it.
//
// # Pipeline
//
// Every Repository.Log call runs four stages:
//
//  1. The enabled gate. A disabled repository does nothing at all.
//  2. Sanitization. The sanitizer is picked in priority order: the
//     LogContext's own Sanitizer, the one registered for its Tag, then the
//     configured default. Data, Metadata and structured Error values are
//     replaced in a copy; the caller's LogContext is never modified.
//  3. Formatting. When a default Formatter is configured its output is
//     attached to the copy's metadata under FormattedOutputKey.
//  4. Fan-out. Adapters are called in registration order. A panic in one
//     adapter is recovered and reported through the WarningHandler; the rest
//     still receive the event.
//
// Level filtering is left to adapters. Config.Severity is informational.
//
// # Quick Start
//
//	repo, _ := logrepo.New(logrepo.ProductionConfig())
//	_ = repo.RegisterAdapter(ctx, "console", console.New(), console.Config{Enabled: true})
//
//	repo.Error("payment failed", &logrepo.LogContext{
//	    Tag:  "payment",
//	    Data: map[string]any{"cardNumber": "4111111111111111"}, // logged as [REDACTED]
//	})
//
//	_ = repo.Destroy(ctx)
//
// # Sanitizers
//
// The DefaultSanitizer redacts values under keys containing words such as
// password, token, secret or cvv, masks emails and phone numbers, and scans
// free text for card numbers. Register a tag-scoped sanitizer to use
// different rules for one feature:
//
//	_ = repo.RegisterSanitizer("audit", logrepo.NewRuleSanitizer(logrepo.RuleSet{
//	    RedactKeys: []string{"password", "ip"},
//	}))
//
// # Singleton
//
// GetInstance returns a process-wide repository built on first use, and
// ResetInstance tears it down. The package-level Debug, Info, Warn and Error
// functions use it. Prefer New and explicit injection where possible.
package logrepo
