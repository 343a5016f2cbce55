package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/yuukich1/3x-ui-bot/bootstrap"
	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/database"
	"github.com/yuukich1/3x-ui-bot/logger"
)

const shutdownTimeout = 15 * time.Second

// runBot 是主执行函数，启动 Bot、订阅服务与后台任务
func runBot() {
	app, err := bootstrap.Initialize()
	if err != nil {
		log.Fatalf("Error initializing application: %v", err)
	}

	runtime := bootstrap.NewRuntime(app)
	if err := runtime.Start(context.Background()); err != nil {
		log.Fatalf("Error starting runtime: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	setupSignalHandler(sigCh)

	for {
		sig := <-sigCh

		if handleCustomSignal(sig, runtime) {
			continue
		}

		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP signal. Dropping panel session...")
			app.Panel.Sessions().Invalidate(app.Panel.Sessions().Current())
		default:
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			runtime.StopAll(ctx)
			cancel()
			if err := database.CloseDB(); err != nil {
				logger.Warning("close database:", err)
			}
			log.Println("Shutting down.")
			return
		}
	}
}

func main() {
	if len(os.Args) < 2 {
		runBot()
		return
	}

	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "show version")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)

	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	var tgID string
	createCmd.StringVar(&tgID, "tg", "", "Telegram ID stored with the new client")

	clientsCmd := flag.NewFlagSet("clients", flag.ExitOnError)
	var inboundID int
	clientsCmd.IntVar(&inboundID, "inbound", 0, "inbound id, defaults to panel.inbound_id")

	settingCmd := flag.NewFlagSet("setting", flag.ExitOnError)
	var show bool
	settingCmd.BoolVar(&show, "show", false, "Display current settings")

	oldUsage := flag.Usage
	flag.Usage = func() {
		oldUsage()
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("    run                      run telegram bot")
		fmt.Println("    link <username>          print stored or panel link")
		fmt.Println("    create [-tg id] <user>   create panel client")
		fmt.Println("    inbounds                 list panel inbounds")
		fmt.Println("    clients [-inbound id]    list client emails of an inbound")
		fmt.Println("    online                   list online clients")
		fmt.Println("    setting -show            display current settings")
	}

	flag.Parse()
	if showVersion {
		fmt.Println(config.GetVersion())
		return
	}

	switch os.Args[1] {
	case "run":
		if err := runCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println(err)
			return
		}
		runBot()
	case "link":
		if len(os.Args) < 3 {
			fmt.Println("Usage: link <username>")
			return
		}
		showLink(os.Args[2])
	case "create":
		if err := createCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println(err)
			return
		}
		if createCmd.NArg() < 1 {
			fmt.Println("Usage: create [-tg id] <username>")
			return
		}
		createLink(createCmd.Arg(0), tgID)
	case "inbounds":
		listInbounds()
	case "clients":
		if err := clientsCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println(err)
			return
		}
		listClients(inboundID)
	case "online":
		listOnline()
	case "setting":
		if err := settingCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println(err)
			return
		}
		showSetting(show)
	default:
		fmt.Println("Invalid subcommands ----->>无效命令")
		fmt.Println()
		flag.Usage()
	}
}
