package progress

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// TokenEnvVars are checked in order for an HTTPS push token.
var TokenEnvVars = []string{"RALPH_GIT_TOKEN", "GIT_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}

// tokenUser is the username sent with a bare token. GitHub and Gitea accept
// any non-empty name.
const tokenUser = "x-access-token"

// sshAgentAuth and credentialFill are replaced in tests.
var (
	sshAgentAuth = func(user string) (transport.AuthMethod, error) {
		auth, err := ssh.NewSSHAgentAuth(user)
		if err != nil {
			return nil, err
		}
		return auth, nil
	}
	credentialFill = gitCredentialFill
)

// pushAuth picks credentials for url. SSH remotes use the running ssh-agent.
// HTTP remotes use a token from TokenEnvVars, then whatever the configured
// git credential helper returns. Local and file remotes need nothing. A nil
// method means push anonymously.
func pushAuth(ctx context.Context, url string) (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}

	switch ep.Protocol {
	case "ssh":
		user := ep.User
		if user == "" {
			user = "git"
		}
		auth, err := sshAgentAuth(user)
		if err != nil {
			return nil, fmt.Errorf("ssh agent: %w", err)
		}
		return auth, nil

	case "http", "https":
		if ep.User != "" && ep.Password != "" {
			return &http.BasicAuth{Username: ep.User, Password: ep.Password}, nil
		}
		if token := lookupToken(); token != "" {
			user := ep.User
			if user == "" {
				user = tokenUser
			}
			return &http.BasicAuth{Username: user, Password: token}, nil
		}
		user, password, err := credentialFill(ctx, ep)
		if err != nil || password == "" {
			return nil, nil
		}
		return &http.BasicAuth{Username: user, Password: password}, nil

	default:
		return nil, nil
	}
}

func lookupToken() string {
	for _, name := range TokenEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// gitCredentialFill asks the git CLI's credential helpers for ep. Prompting
// is disabled so an unattended loop never blocks on a terminal.
func gitCredentialFill(ctx context.Context, ep *transport.Endpoint) (string, string, error) {
	host := ep.Host
	if ep.Port != 0 {
		host += ":" + strconv.Itoa(ep.Port)
	}
	var in strings.Builder
	fmt.Fprintf(&in, "protocol=%s\nhost=%s\n", ep.Protocol, host)
	if ep.User != "" {
		fmt.Fprintf(&in, "username=%s\n", ep.User)
	}
	in.WriteString("\n")

	cmd := exec.CommandContext(ctx, "git", "credential", "fill")
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=true")
	cmd.Stdin = strings.NewReader(in.String())
	out, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("git credential fill: %w", err)
	}
	user, password := parseCredential(out)
	return user, password, nil
}

// parseCredential reads the key=value lines printed by git credential fill.
func parseCredential(out []byte) (user, password string) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "username":
			user = value
		case "password":
			password = value
		}
	}
	return user, password
}
