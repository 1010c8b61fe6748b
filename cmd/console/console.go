package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"philo-chat-go/internal/model"
	"philo-chat-go/internal/service"
	"strconv"
	"strings"
)

const (
	cmdSignup           = "signup"
	cmdLogin            = "login"
	cmdLogout           = "logout"
	cmdDeleteAccount    = "delete_account"
	cmdSetName          = "set_name"
	cmdSetAge           = "set_age"
	cmdNewChat          = "new_chat"
	cmdSelectChat       = "select_chat"
	cmdListChats        = "list_chats"
	cmdExitChat         = "exit_chat"
	cmdDeleteChat       = "delete_chat"
	cmdListPhilosophers = "list_philosophers"
	cmdHelp             = "help"
	cmdExit             = "exit"

	success = "Success"
)

var commandOrder = []string{
	cmdSignup, cmdLogin, cmdLogout, cmdDeleteAccount, cmdSetName, cmdSetAge,
	cmdNewChat, cmdSelectChat, cmdListChats, cmdExitChat, cmdDeleteChat,
	cmdListPhilosophers, cmdHelp, cmdExit,
}

// console 是单个终端用户的读取-执行-输出循环，持有该终端的会话 ID。
type console struct {
	svc       service.SessionService
	in        *bufio.Scanner
	out       io.Writer
	sessionID string
}

func newConsole(svc service.SessionService, in io.Reader, out io.Writer) *console {
	return &console{svc: svc, in: bufio.NewScanner(in), out: out}
}

func (c *console) println(a ...interface{}) {
	fmt.Fprintln(c.out, a...)
}

// prompt 输出提示并读取一行；输入结束时 ok 为 false。
func (c *console) prompt(text string) (string, bool) {
	fmt.Fprint(c.out, text)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *console) run(ctx context.Context) error {
	c.println("Welcome to Philosopher Chat!\nCommands? Type 'help' and see what's possible")
	for {
		command, ok := c.prompt("Please enter the command: ")
		if !ok {
			return c.in.Err()
		}
		if command == cmdExit {
			return nil
		}
		if msg := c.handle(ctx, command); msg != "" {
			c.println(msg)
		}
	}
}

// handle 执行一条命令并返回要展示的结果；失败时返回错误描述。
func (c *console) handle(ctx context.Context, command string) string {
	// 需要登录的命令在提示输入之前先检查登录状态，否则后续的命令行会被当作参数读走
	if promptsWhenLoggedIn[command] {
		if _, err := c.svc.Profile(ctx, c.sessionID); err != nil {
			return err.Error()
		}
	}

	var err error
	switch command {
	case cmdSignup:
		err = c.signup(ctx)
	case cmdLogin:
		err = c.login(ctx)
	case cmdLogout:
		err = c.svc.Logout(ctx, c.sessionID)
		if err == nil {
			c.sessionID = ""
		}
	case cmdDeleteAccount:
		err = c.svc.DeleteAccount(ctx, c.sessionID)
		if err == nil {
			c.sessionID = ""
		}
	case cmdSetName:
		name, _ := c.prompt("Enter your name: ")
		err = c.svc.SetName(ctx, c.sessionID, name)
	case cmdSetAge:
		err = c.setAge(ctx)
	case cmdNewChat:
		err = c.newChat(ctx)
	case cmdSelectChat:
		name, _ := c.prompt("Enter the chat name: ")
		return c.chatSession(ctx, name)
	case cmdListChats:
		err = c.listChats(ctx)
		if err == nil {
			return ""
		}
	case cmdExitChat:
		err = c.svc.ExitChat(ctx, c.sessionID)
	case cmdDeleteChat:
		name, _ := c.prompt("Enter the chat name: ")
		err = c.svc.DeleteChat(ctx, c.sessionID, name)
	case cmdListPhilosophers:
		_, err = c.listPhilosophers(ctx)
		if err == nil {
			return ""
		}
	case cmdHelp:
		var b strings.Builder
		b.WriteString("Available commands:")
		for _, name := range commandOrder {
			b.WriteString("\n\t-" + name)
		}
		return b.String()
	default:
		return "Please enter a valid command."
	}
	if err != nil {
		return err.Error()
	}
	return success
}

// promptsWhenLoggedIn 列出需要登录且会继续读取输入的命令。
var promptsWhenLoggedIn = map[string]bool{
	cmdSetName:    true,
	cmdSetAge:     true,
	cmdNewChat:    true,
	cmdSelectChat: true,
	cmdDeleteChat: true,
}

func (c *console) signup(ctx context.Context) error {
	username, _ := c.prompt("Enter your username: ")
	password, _ := c.prompt("Enter your password: ")
	return c.svc.Signup(ctx, c.sessionID, username, password)
}

func (c *console) login(ctx context.Context) error {
	username, _ := c.prompt("Enter your username: ")
	password, _ := c.prompt("Enter your password: ")
	sessionID, err := c.svc.Login(ctx, c.sessionID, username, password)
	if err != nil {
		return err
	}
	c.sessionID = sessionID
	return nil
}

func (c *console) setAge(ctx context.Context) error {
	text, _ := c.prompt("Enter your age: ")
	age, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("age must be a number")
	}
	return c.svc.SetAge(ctx, c.sessionID, age)
}

func (c *console) newChat(ctx context.Context) error {
	name, _ := c.prompt("Enter the chat name: ")
	philosophers, err := c.listPhilosophers(ctx)
	if err != nil {
		return err
	}
	text, _ := c.prompt("Choose a philosopher by number: ")
	choice, err := strconv.Atoi(text)
	if err != nil || choice < 1 || choice > len(philosophers) {
		return fmt.Errorf("invalid choice")
	}
	return c.svc.NewChat(ctx, c.sessionID, name, philosophers[choice-1].ID)
}

// chatSession 选中对话、打印历史，然后逐行补全直到 exit_chat。
func (c *console) chatSession(ctx context.Context, name string) string {
	history, err := c.svc.SelectChat(ctx, c.sessionID, name)
	if err != nil {
		return err.Error()
	}
	for _, msg := range history {
		c.printMessage(msg)
	}

	for {
		text, ok := c.prompt("Enter your message (type 'exit_chat' to leave): ")
		if !ok {
			return "Exited chat."
		}
		if text == cmdExitChat {
			if err := c.svc.ExitChat(ctx, c.sessionID); err != nil {
				return err.Error()
			}
			return "Exited chat."
		}
		assistant, user, err := c.svc.CompleteChat(ctx, c.sessionID, text)
		if err != nil {
			c.println(err.Error())
			continue
		}
		c.printMessage(user)
		c.printMessage(assistant)
	}
}

func (c *console) listChats(ctx context.Context) error {
	chats, err := c.svc.ListChats(ctx, c.sessionID)
	if err != nil {
		return err
	}
	for _, chat := range chats {
		fmt.Fprintf(c.out, "%s\tPhilosopher-> %s\n", chat.Name, chat.Philosopher.Name)
	}
	return nil
}

func (c *console) listPhilosophers(ctx context.Context) ([]model.Philosopher, error) {
	philosophers, err := c.svc.ListPhilosophers(ctx)
	if err != nil {
		return nil, err
	}
	for i, p := range philosophers {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, p.Name)
	}
	return philosophers, nil
}

func (c *console) printMessage(msg model.Message) {
	c.println(strings.Repeat("-", 50))
	fmt.Fprintf(c.out, "[%s] %s ->\n%s\n", msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Author, msg.Content)
}
