package config

import (
	"bufio"
	"math/rand"
	"os"
	"strings"
)

// LoadProxies reads one proxy URI per line, skipping blanks and
// #-comments, and shuffles the result so accounts spread across the
// pool. A missing file is created empty; proxyless operation is fine.
func LoadProxies(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if werr := os.WriteFile(path, nil, 0o644); werr != nil {
			return nil, werr
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var proxies []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	rand.Shuffle(len(proxies), func(i, j int) {
		proxies[i], proxies[j] = proxies[j], proxies[i]
	})
	return proxies, nil
}
