// Package client speaks the minidb line protocol.
//
// A Client holds one TCP connection and sends one command per line,
// reading back one reply per command:
//
//	c, err := client.Dial(ctx, "127.0.0.1:1111")
//	...
//	defer c.Close()
//	err = c.Post("A", "B")
//	v, err := c.Get("A")
//
// The package also carries the acceptance scenarios used by
// "minidb-cli check".
package client
