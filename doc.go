// Package riakpb is a client for the Riak protocol buffers interface.
//
// Two layers are provided. Session is the non-blocking core: it encodes
// requests, writes them on a Transport and resolves callbacks in request
// order as response frames arrive through HandleData. Requests are
// pipelined, one in flight at a time, and every pending callback fails with
// ErrConnectionClosed when the transport closes.
//
// Connection runs a Session over a net.Conn with a read loop and adds the
// blocking Do. Client spreads Connections over per-server pools:
//
//	client, err := riakpb.NewClient(riakpb.NewStaticServers("localhost:8087"), riakpb.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	_, err = client.Put(ctx, "users", "jarelol", []byte("hello"), nil)
//	resp, err := client.Get(ctx, "users", "jarelol", nil)
//
// Error responses from the server are returned as *pbc.ServerError and leave
// the connection in the pool. Transport and parse failures close it, see
// pbc.ShouldCloseConnection.
package riakpb
