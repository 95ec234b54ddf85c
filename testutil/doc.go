// Copyright 2026 rerankbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 rerankbridge 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual
  - 数据工具: MustJSON / MustParseJSON
  - 远端替身: FakeReranker 基于 httptest 模拟 POST /rerank 与 GET /health，
    可配置状态码、响应体与延迟，并记录收到的请求
  - 网络辅助: UnreachableURL 返回无人监听的地址，用于模拟连接被拒绝

# 使用示例

	fake := testutil.NewFakeReranker(t)
	fake.RespondRerank(http.StatusOK, `{"results":[{"index":1,"score":0.9}]}`)
	client := rerank.NewClient(rerank.Credentials{APIURL: fake.URL(), Timeout: time.Second, TopK: 5})
*/
package testutil
