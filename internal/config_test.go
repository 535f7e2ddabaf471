package internal

import (
	"collab-lab/errors"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal(DriverBadger, config.StorageDriver)
	req.Equal(3001, config.Port)
	req.Equal(25*time.Second, config.HeartbeatInterval)
	req.Zero(config.AppendTimeout)
	req.Nil(config.LimitMessages)
	req.Equal([]string{"*"}, config.Origins())
}

func TestConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://collab@localhost/collab?sslmode=disable")
	t.Setenv("LIMIT_MESSAGES", "20")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("APPEND_TIMEOUT", "3s")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal(lo.ToPtr(20), config.LimitMessages)
	req.Equal(3*time.Second, config.AppendTimeout)
	req.Equal([]string{"https://a.example", "https://b.example"}, config.Origins())
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)
	valid := Config{StorageDriver: DriverBadger, BufferSize: 1, ConnectionBufferSize: 1}

	req.NoError(valid.Validate())

	unknown := valid
	unknown.StorageDriver = "mongo"
	req.ErrorIs(unknown.Validate(), errors.ErrUnknownDriver)

	noDSN := valid
	noDSN.StorageDriver = DriverPostgres
	req.Error(noDSN.Validate())

	noLimit := valid
	noLimit.LimitMessages = lo.ToPtr(0)
	req.Error(noLimit.Validate())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("*")
	req.NoError(err)
	req.Equal('*', r)

	_, err = CharacterRune("**")
	req.Error(err)
}
