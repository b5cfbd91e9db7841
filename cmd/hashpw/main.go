package main // Prints a bcrypt hash suitable for OPERATOR_PASSWORD_HASH

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showdesk/internal/utils"
)

func main() {
	cost := flag.Int("cost", utils.PasswordCost, "bcrypt cost")
	flag.Parse()

	plain := flag.Arg(0)
	if plain == "" {
		// read from stdin so the password stays out of shell history
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logrus.WithError(err).Fatal("read password")
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		logrus.Fatal("empty password")
	}

	hash, err := utils.HashPassword(plain, *cost)
	if err != nil {
		logrus.WithError(err).Fatal("hash password")
	}
	fmt.Println(hash)
}
