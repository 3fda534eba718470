package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuth swaps the ssh-agent and credential helper lookups for the test.
func stubAuth(t *testing.T, fill func(ep *transport.Endpoint) (string, string, error)) *[]string {
	t.Helper()
	for _, name := range TokenEnvVars {
		t.Setenv(name, "")
	}

	var sshUsers []string
	origSSH, origFill := sshAgentAuth, credentialFill
	sshAgentAuth = func(user string) (transport.AuthMethod, error) {
		sshUsers = append(sshUsers, user)
		return &ssh.PublicKeysCallback{User: user}, nil
	}
	credentialFill = func(_ context.Context, ep *transport.Endpoint) (string, string, error) {
		if fill == nil {
			return "", "", errors.New("no helper")
		}
		return fill(ep)
	}
	t.Cleanup(func() { sshAgentAuth, credentialFill = origSSH, origFill })
	return &sshUsers
}

func TestPushAuthSSH(t *testing.T) {
	users := stubAuth(t, nil)

	auth, err := pushAuth(context.Background(), "git@github.com:zachwill/ralph.git")
	require.NoError(t, err)
	cb, ok := auth.(*ssh.PublicKeysCallback)
	require.True(t, ok, "got %T", auth)
	assert.Equal(t, "git", cb.User)

	_, err = pushAuth(context.Background(), "ssh://deploy@example.com:2222/srv/repo.git")
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "deploy"}, *users)
}

func TestPushAuthSSHAgentMissing(t *testing.T) {
	stubAuth(t, nil)
	sshAgentAuth = func(string) (transport.AuthMethod, error) {
		return nil, errors.New("SSH_AUTH_SOCK not-specified")
	}

	_, err := pushAuth(context.Background(), "git@github.com:zachwill/ralph.git")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh agent")
}

func TestPushAuthHTTPSToken(t *testing.T) {
	filled := false
	stubAuth(t, func(*transport.Endpoint) (string, string, error) {
		filled = true
		return "me", "pw", nil
	})
	t.Setenv("GITHUB_TOKEN", "ghp_secret")

	auth, err := pushAuth(context.Background(), "https://github.com/zachwill/ralph.git")
	require.NoError(t, err)
	assert.Equal(t, &http.BasicAuth{Username: tokenUser, Password: "ghp_secret"}, auth)
	assert.False(t, filled, "a token skips the credential helper")

	t.Setenv("RALPH_GIT_TOKEN", "ralph_secret")
	auth, err = pushAuth(context.Background(), "https://bot@git.example.com/repo.git")
	require.NoError(t, err)
	assert.Equal(t, &http.BasicAuth{Username: "bot", Password: "ralph_secret"}, auth)
}

func TestPushAuthHTTPSCredentialHelper(t *testing.T) {
	var asked *transport.Endpoint
	stubAuth(t, func(ep *transport.Endpoint) (string, string, error) {
		asked = ep
		return "zach", "from-helper", nil
	})

	auth, err := pushAuth(context.Background(), "https://github.com/zachwill/ralph.git")
	require.NoError(t, err)
	assert.Equal(t, &http.BasicAuth{Username: "zach", Password: "from-helper"}, auth)
	require.NotNil(t, asked)
	assert.Equal(t, "github.com", asked.Host)
}

func TestPushAuthHTTPSAnonymousFallback(t *testing.T) {
	stubAuth(t, nil)

	auth, err := pushAuth(context.Background(), "https://github.com/zachwill/ralph.git")
	require.NoError(t, err)
	assert.Nil(t, auth)

	stubAuth(t, func(*transport.Endpoint) (string, string, error) { return "", "", nil })
	auth, err = pushAuth(context.Background(), "http://git.local/repo.git")
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestPushAuthLocalRemote(t *testing.T) {
	users := stubAuth(t, nil)

	for _, url := range []string{"/srv/git/repo.git", "file:///srv/git/repo.git"} {
		auth, err := pushAuth(context.Background(), url)
		require.NoError(t, err, url)
		assert.Nil(t, auth, url)
	}
	assert.Empty(t, *users)
}

func TestParseCredential(t *testing.T) {
	user, password := parseCredential([]byte("protocol=https\nhost=github.com\nusername=zach\npassword=a=b\n"))
	assert.Equal(t, "zach", user)
	assert.Equal(t, "a=b", password)
}
