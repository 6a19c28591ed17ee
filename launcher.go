// Запуск для локальной разработки: go run launcher.go
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"
)

const healthURL = "http://127.0.0.1:8080/.well-known/jwks.json"

func main() {
	fmt.Println("Запуск JWKS сервера...")

	// без секрета сервер не стартует, лучше сказать об этом сразу
	for _, env := range []string{"NOT_MY_KEY", "DATABASE_DSN"} {
		if os.Getenv(env) == "" {
			fmt.Printf("Внимание: %s не задан (можно положить в .env)\n", env)
		}
	}

	clientName := "jwksctl"
	if runtime.GOOS == "windows" {
		clientName = "jwksctl.exe"
	}
	// запускаем сервер на фоне
	server := exec.Command("go", "run", "./cmd/server/main.go")
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr

	if err := server.Start(); err != nil {
		fmt.Printf("Ошибка запуска сервера: %v\n", err)
		return
	}

	// ждём, пока сервер начнёт отдавать JWKS
	if !waitReady(30 * time.Second) {
		fmt.Println("Сервер не ответил за 30 секунд, смотри runtime/logs/http.log")
		_ = server.Process.Kill()
		return
	}

	// собираем клиента
	if _, err := os.Stat(clientName); os.IsNotExist(err) {
		fmt.Println("Сборка клиента...")
		build := exec.Command("go", "build", "-o", clientName, "./cmd/jwksctl/main.go")
		build.Stdout = os.Stdout
		build.Stderr = os.Stderr
		if err := build.Run(); err != nil {
			fmt.Printf("Ошибка сборки клиента: %v\n", err)
		}
		// если не винда даём права
		if runtime.GOOS != "windows" {
			os.Chmod(clientName, 0755)
		}
	}

	fmt.Println("Сервер запущен")
	bin := "./" + clientName
	if runtime.GOOS == "windows" {
		bin = ".\\" + clientName
	}
	fmt.Printf("Данный терминал не закрывай. Открой новый и запускай:\n  %s token\n  %s token --expired\n  %s jwks --kids\n  %s verify\n", bin, bin, bin, bin)

	server.Wait()
}

func waitReady(limit time.Duration) bool {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		res, err := client.Get(healthURL)
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}
