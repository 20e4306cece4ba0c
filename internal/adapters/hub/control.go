package hub

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
	txn string,
) {
	resp := struct {
		Type  string `json:"type"`
		TxnID string `json:"txn_id,omitempty"`
	}{
		Type:  "pong",
		TxnID: txn,
	}
	ctl.sendJSON(conn, resp)
}
