package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/app"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/cli"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/onboarding"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	cli.Version = version

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "today":
			cli.HandleTodayCommand()
			return
		case "taken":
			cli.HandleTakenCommand(os.Args[2:])
			return
		case "schedule":
			cli.HandleScheduleCommand()
			return
		case "cancel":
			cli.HandleCancelCommand()
			return
		case "history":
			cli.HandleHistoryCommand(os.Args[2:])
			return
		case "status":
			cli.HandleStatusCommand()
			return
		case "channels":
			cli.HandleChannelsCommand(os.Args[2:])
			return
		case "config":
			cli.HandleConfigCommand(os.Args[2:])
			return
		case "doctor":
			cli.HandleDoctorCommand()
			return
		case "onboard":
			runOnboarding()
			return
		case "serve", "server":
			runServer()
			return
		case "help", "--help", "-h":
			cli.PrintExtendedHelp()
			return
		case "version", "--version", "-v":
			fmt.Printf("ivfmed version %s\n", version)
			return
		}
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		if onboarding.CheckFirstRun() {
			fmt.Println("💊 Welcome to IVF Påminnare!")
			fmt.Println()
			fmt.Println("It looks like this is your first run.")
			fmt.Print("Run the setup wizard? (Y/n): ")

			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))

			if response == "" || response == "y" || response == "yes" {
				runOnboarding()
				return
			}
		}
		cli.PrintExtendedHelp()
		return
	}

	runServer()
}

func runOnboarding() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	wizard := onboarding.NewWizard(logger)
	if err := wizard.Run(); err != nil {
		fmt.Printf("\n❌ Setup failed: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	flag.CommandLine.Parse(rest(os.Args))

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting ivfmed", zap.String("version", version))

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	application, err := app.New(cfg, logger, version)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	application.RunServer()
}

// rest strips the subcommand so flag parsing sees only the flags.
func rest(args []string) []string {
	if len(args) > 1 && (args[1] == "serve" || args[1] == "server") {
		return args[2:]
	}
	return args[1:]
}
