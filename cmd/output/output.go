package output

import (
	"fmt"
	"time"

	"frida-keeper/internal/models"
	"frida-keeper/internal/rpc"
	"frida-keeper/services"
)

/**
 * Connect to a running keeper daemon
 * @returns {rpc.HTTPClient} nil when no daemon answers the health check
 */
func Daemon() rpc.HTTPClient {
	cfg := rpc.DefaultHTTPConfig()
	cfg.Timeout = 10 * time.Second
	client := rpc.NewHTTPClient(cfg)
	resp, err := client.Get("/healthz", nil)
	if err != nil || !resp.OK() {
		client.Close()
		return nil
	}
	return client
}

/**
 * Submit an asynchronous operation to the daemon
 * @returns {string, error} Flow id accepted by the daemon
 */
func Submit(client rpc.HTTPClient, path string, body interface{}) (string, error) {
	resp, err := client.Post(path, body)
	if err != nil {
		return "", err
	}
	var fr models.FlowResponse
	if err := resp.Decode(&fr); err != nil {
		return "", err
	}
	if fr.Message != "" {
		fmt.Println(fr.Message)
	}
	return fr.FlowID, nil
}

/**
 * Run a flow through the daemon when it is up, in this process otherwise
 * @param {string} path - API path of the operation
 * @param {interface{}} body - Request body sent to the daemon
 * @param {func} local - Starts the same operation on the local keeper
 * @description
 * - Daemon errors such as a busy session are reported, not retried locally
 */
func RunFlow(path string, body interface{}, local func(k *services.Keeper) (string, error)) error {
	if client := Daemon(); client != nil {
		defer client.Close()
		id, err := Submit(client, path, body)
		if err != nil {
			return err
		}
		return FollowRemote(client, id)
	}

	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	sub := keeper.Session().Subscribe()
	defer sub.Close()
	id, err := local(keeper)
	if err != nil {
		return err
	}
	return FollowLocal(sub, id)
}
