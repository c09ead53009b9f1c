package onboarding

// SetupWizardWelcome is the welcome message for the setup wizard
const SetupWizardWelcome = `
╔════════════════════════════════════════════════════════════════╗
║                                                                ║
║                  💊 Welcome to IVF Påminnare                   ║
║                                                                ║
║            Medication Reminder Daemon - Setup Wizard           ║
║                                                                ║
╚════════════════════════════════════════════════════════════════╝

This wizard will guide you through setting up ivfmed.
It takes a minute or two: treatment dates, reminder times
and an optional Telegram bot for delivery.

Press Enter to continue...
`

// SetupCompleteMessage is shown when setup completes
const SetupCompleteMessage = `
╔════════════════════════════════════════════════════════════════╗
║                                                                ║
║                  ✅ Setup Complete!                            ║
║                                                                ║
╚════════════════════════════════════════════════════════════════╝

Your ivfmed workspace has been created at:
  {{.WorkspacePath}}

Configuration file:
  {{.ConfigPath}}

## Next Steps:

1. Start the daemon:
   $ ivfmed serve

2. Check today's doses:
   $ ivfmed today

3. Mark a dose as taken:
   $ ivfmed taken est 08:00

## Useful Commands:

  ivfmed status      # Configuration summary
  ivfmed channels    # Delivery channel status
  ivfmed history     # Recently taken doses
  ivfmed doctor      # Diagnostics

## Help:

  ivfmed help

Lycka till! 💪
`
