package server_test

import (
	"testing"

	"github.com/conveyorci/conveyor/server/app"
)

func TestConfig(t *testing.T) *app.ServerConfig {
	test256bitKeyStr := "abcdefghijklmnopqrstuvwxyz123456"
	var test256bitKey [32]byte
	copy(test256bitKey[:], test256bitKeyStr)

	return &app.ServerConfig{
		EncryptionConfig: app.EncryptionConfig{
			LocalKeyManagerMasterKey: &test256bitKey,
		},
		LogLevels: "",
	}
}
