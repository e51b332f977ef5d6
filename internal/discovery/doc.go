// Package discovery makes controllers findable.
//
// A controller announces itself two ways: an mDNS service (_luxio._tcp)
// carrying its id, name and firmware version in TXT records, and a periodic
// JSON descriptor posted to a remote discovery endpoint so that apps outside
// the local segment can find it. Scanner is the client side of the mDNS
// announcement and backs the "luxio scan" command.
//
// Example:
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//	devices, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Println(d)
//	}
package discovery
