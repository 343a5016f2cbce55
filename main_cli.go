package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yuukich1/3x-ui-bot/bootstrap"
	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/util/common"
)

// CLI 颜色常量
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
)

const cliTimeout = 30 * time.Second

// failureLine 带错误码的失败提示
func failureLine(action string, err error) string {
	return fmt.Sprintf("%sFailed to %s (%s):%s %v", Red, action, common.GetErrorCode(err), Reset, err)
}

func writeClientEmails(w io.Writer, inboundID int, emails []string) {
	fmt.Fprintf(w, "inbound %d: %d clients\n", inboundID, len(emails))
	for _, email := range emails {
		fmt.Fprintln(w, email)
	}
}

// initAppForCLI 初始化应用用于 CLI 命令
func initAppForCLI() (*bootstrap.App, bool) {
	app, err := bootstrap.Initialize()
	if err != nil {
		fmt.Println(Red+"Failed to initialize application:"+Reset, err)
		return nil, false
	}
	return app, true
}

func showLink(username string) {
	app, ok := initAppForCLI()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	link, err := app.Vless.GetLink(ctx, username)
	if err != nil {
		if common.GetErrorCode(err) == common.ErrCodeNotFound {
			fmt.Println(Yellow+"No link for"+Reset, username)
			return
		}
		fmt.Println(failureLine("get link", err))
		return
	}
	fmt.Println(link)
}

func createLink(username, tgID string) {
	app, ok := initAppForCLI()
	if !ok {
		return
	}
	if tgID == "" {
		tgID = username
	}
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	link, err := app.Vless.CreateOrFail(ctx, username, tgID)
	if err != nil {
		if common.GetErrorCode(err) == common.ErrCodeConflict {
			fmt.Println(Yellow+"Client already exists:"+Reset, username)
			return
		}
		fmt.Println(failureLine("create client", err))
		return
	}
	fmt.Println(Green + "Client created" + Reset)
	fmt.Println(link)
}

func listInbounds() {
	app, ok := initAppForCLI()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	inbounds, err := app.Panel.ListInbounds(ctx)
	if err != nil {
		fmt.Println(failureLine("list inbounds", err))
		return
	}
	for _, in := range inbounds {
		fmt.Printf("%d\t%s\t%s:%d\tclients=%d\tenable=%v\n",
			in.Id, in.Remark, in.Protocol, in.Port, len(in.Settings.Clients), in.Enable)
	}
}

// listClients 列出单个入站的客户端，inboundID 为 0 时使用配置中的入站
func listClients(inboundID int) {
	app, ok := initAppForCLI()
	if !ok {
		return
	}
	if inboundID == 0 {
		inboundID = config.GetPanelConfig().InboundID
	}
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	emails, err := app.Panel.ListClientEmails(ctx, inboundID)
	if err != nil {
		fmt.Println(failureLine("list clients", err))
		return
	}
	writeClientEmails(os.Stdout, inboundID, emails)
}

func listOnline() {
	app, ok := initAppForCLI()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	emails, err := app.Panel.ListOnline(ctx)
	if err != nil {
		fmt.Println(failureLine("list online clients", err))
		return
	}
	fmt.Printf(Green+"Online: %d"+Reset+"\n", len(emails))
	for _, email := range emails {
		fmt.Println(email)
	}
}

func showSetting(show bool) {
	if !show {
		return
	}
	bootstrap.LoadEnv()

	pc := config.GetPanelConfig()
	tc := config.GetTelegramConfig()
	sc := config.GetSubConfig()

	fmt.Println("current panel settings:")
	fmt.Println("  url:", pc.BaseURL())
	fmt.Println("  username:", pc.Username)
	fmt.Println("  inbound:", pc.InboundID)
	fmt.Println("  2fa:", pc.TwoFactorSecret != "")
	fmt.Println("telegram:")
	fmt.Println("  token set:", tc.Token != "")
	fmt.Println("  admins:", tc.AdminIDs)
	fmt.Println("sub:")
	fmt.Println("  enable:", sc.Enable, "port:", sc.Port, "path:", sc.Path)
	fmt.Println("db:", config.GetDBPath())
}
