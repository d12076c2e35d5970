//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default 默认任务：显示帮助信息
func Default() {
	fmt.Println("FundSub 构建系统")
	fmt.Println("================")
	fmt.Println("可用任务:")
	fmt.Println("  mage build           - 构建所有二进制文件")
	fmt.Println("  mage test            - 运行单元测试")
	fmt.Println("  mage testIntegration - 运行依赖 Redis 的测试 (需要 REDIS_ADDR)")
	fmt.Println("  mage generate        - 重新生成 mock")
	fmt.Println("  mage clean           - 清理构建产物")
	fmt.Println("  mage lint            - 运行代码检查")
	fmt.Println("  mage coverage        - 生成测试覆盖率报告")
}

// Build 构建所有二进制文件
func Build() error {
	mg.Deps(Clean)

	targets := []struct {
		name string
		path string
	}{
		{"fundsub", "./cmd/fundsub"},
		{"fetcher", "./cmd/fetcher"},
		{"api_server", "./cmd/api_server"},
	}

	fmt.Println("🚀 开始构建 FundSub 组件...")

	for _, target := range targets {
		fmt.Printf("📦 构建 %s...\n", target.name)
		output := filepath.Join("./dist", target.name)
		if runtime.GOOS == "windows" {
			output += ".exe"
		}

		// go-sqlite3 需要 cgo
		cmd := exec.Command("go", "build", "-o", output, target.path)
		cmd.Env = append(os.Environ(), "CGO_ENABLED=1")

		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("构建 %s 失败: %v\n输出: %s", target.name, err, string(out))
		}

		if info, err := os.Stat(output); err == nil {
			fmt.Printf("   ✅ %s: %d MB\n", target.name, info.Size()/1024/1024)
		}
	}

	fmt.Println("🎉 所有组件构建完成!")
	return nil
}

// Test 运行单元测试
func Test() error {
	fmt.Println("🧪 运行单元测试...")

	if err := sh.RunV("go", "test", "./pkg/...", "./cmd/...", "-timeout=5m"); err != nil {
		return fmt.Errorf("单元测试失败: %v", err)
	}

	fmt.Println("✅ 单元测试通过!")
	return nil
}

// TestIntegration 运行依赖 Redis 的测试
func TestIntegration() error {
	fmt.Println("🔗 运行集成测试...")

	if os.Getenv("REDIS_ADDR") == "" {
		fmt.Println("⚠️  未设置 REDIS_ADDR，Redis 相关测试会被跳过")
	}

	if err := sh.RunV("go", "test", "-v", "-run", "Redis|Stream", "./pkg/cache/...", "./pkg/storage/...", "-timeout=5m"); err != nil {
		return fmt.Errorf("集成测试失败: %v", err)
	}

	fmt.Println("✅ 集成测试通过!")
	return nil
}

// Generate 重新生成 mock
func Generate() error {
	fmt.Println("🛠️  生成 mock...")
	return sh.RunV("go", "generate", "./pkg/...")
}

// Clean 清理构建产物
func Clean() error {
	fmt.Println("🧹 清理构建产物...")

	if err := os.MkdirAll("./dist", 0755); err != nil {
		return fmt.Errorf("创建 dist 目录失败: %v", err)
	}

	files, err := filepath.Glob("./dist/*")
	if err != nil {
		return fmt.Errorf("查找文件失败: %v", err)
	}

	for _, file := range files {
		if err := os.Remove(file); err != nil {
			fmt.Printf("警告: 无法删除文件 %s: %v\n", file, err)
		}
	}

	if err := os.RemoveAll("./reports"); err != nil {
		fmt.Printf("警告: 清理报告目录失败: %v\n", err)
	}

	fmt.Println("✅ 清理完成!")
	return nil
}

// Lint 检查代码格式并运行 go vet
func Lint() error {
	fmt.Println("🔍 运行代码检查...")

	out, err := sh.Output("gofmt", "-l", "./pkg", "./cmd")
	if err != nil {
		return fmt.Errorf("gofmt 检查失败: %v", err)
	}
	if out != "" {
		return fmt.Errorf("以下文件需要 gofmt:\n%s", out)
	}

	if err := sh.RunV("go", "vet", "./pkg/...", "./cmd/..."); err != nil {
		return fmt.Errorf("go vet 失败: %v", err)
	}

	fmt.Println("✅ 代码检查通过!")
	return nil
}

// Coverage 生成测试覆盖率报告
func Coverage() error {
	fmt.Println("📈 生成测试覆盖率报告...")

	if err := os.MkdirAll("./reports", 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %v", err)
	}

	if err := sh.Run("go", "test", "./pkg/...", "./cmd/...", "-coverprofile=./reports/coverage.out", "-covermode=atomic"); err != nil {
		return fmt.Errorf("生成覆盖率失败: %v", err)
	}

	if err := sh.Run("go", "tool", "cover", "-html=./reports/coverage.out", "-o", "./reports/coverage.html"); err != nil {
		return fmt.Errorf("生成HTML报告失败: %v", err)
	}

	if err := sh.RunV("go", "tool", "cover", "-func=./reports/coverage.out"); err != nil {
		return fmt.Errorf("显示覆盖率失败: %v", err)
	}

	fmt.Println("✅ 覆盖率报告生成完成!")
	fmt.Println("   详细报告: file://" + getAbsolutePath("./reports/coverage.html"))
	return nil
}

func getAbsolutePath(relativePath string) string {
	absPath, err := filepath.Abs(relativePath)
	if err != nil {
		return relativePath
	}
	return absPath
}
