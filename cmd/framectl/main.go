// Command framectl exercises the frame allocator: it simulates render frames,
// drives single pages with random workloads and prints the effective
// configuration.
package main

func main() {
	execute()
}
